// Command leadctl runs industry research and manages the transcript and
// result stores from the shell.
package main

func main() {
	Execute()
}
