// Package chat decides what the assistant says: a remote model reply when one
// is available, otherwise a canned reply chosen from a fixed table.
package chat

// EmptyInputReply is returned for blank messages without consulting anything else.
const EmptyInputReply = "Please say something! 😊"

// KeywordReply maps a lowercase phrase to a canned reply.
type KeywordReply struct {
	Keyword string
	Reply   string
}

// keywordReplies is scanned in order and the first contained keyword wins,
// so "oh hi, how are you" gets the "hi" reply.
var keywordReplies = []KeywordReply{
	{"hello", "Hey there! How are you doing today? 😊"},
	{"hi", "Hi! Great to see you! What's on your mind? 💭"},
	{"how are you", "I'm doing great, thanks for asking! How about you?"},
	{"thanks", "You're welcome! Happy to help! 🙌"},
	{"goodbye", "Goodbye! Talk to you later! 👋"},
	{"bye", "See you soon! Take care! 👋"},
	{"help", "I'm here to chat with you! Just type anything and I'll respond. What would you like to talk about?"},
	{"who are you", "I'm your AI friend! I'm here to have fun conversations with you! 🤖💜"},
	{"what can you do", "I can chat with you about anything! Try asking me questions or telling me about your day!"},
}

var genericReplies = []string{
	"That's interesting! Tell me more! 🤔",
	"Wow, I didn't know that! What else? 😊",
	"That sounds cool! How did that happen? 🎉",
	"Oh interesting! I like that! ✨",
	"Tell me more about that! 👂",
	"That's awesome! What else is on your mind? 💭",
	"I hear you! That's really something! 🌟",
}

// KeywordReplies returns a copy of the keyword table in match order.
func KeywordReplies() []KeywordReply {
	out := make([]KeywordReply, len(keywordReplies))
	copy(out, keywordReplies)
	return out
}

// GenericReplies returns a copy of the replies used when no keyword matches.
func GenericReplies() []string {
	out := make([]string, len(genericReplies))
	copy(out, genericReplies)
	return out
}
