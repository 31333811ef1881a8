// Command wavequeue runs the queue-driven music player.
package main

import "github.com/edumarques81/wavequeue/internal/cli"

func main() {
	cli.Execute()
}
