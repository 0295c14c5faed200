// AI Friend - terminal chat client
package main

func main() {
	Execute()
}
