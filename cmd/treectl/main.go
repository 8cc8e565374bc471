// Command treectl runs maintenance tasks against the tree request database.
package main

func main() {
	execute()
}
