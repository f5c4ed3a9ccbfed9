package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"flowdeck/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", "/tmp/flowdeck-voice.sock", "Daemon control socket")
	cli.Parse()

	args := cli.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: flowdeck-ctl [--socket path] start|stop|status")
		os.Exit(2)
	}

	cmd := args[0]
	switch cmd {
	case ipc.CmdStart, ipc.CmdStop, ipc.CmdStatus:
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}

	reply, err := ipc.Send(*socket, cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "flowdeck-voice not running:", err)
		os.Exit(1)
	}
	if reply.Error != "" {
		fmt.Fprintln(os.Stderr, "error:", reply.Error)
		os.Exit(1)
	}

	switch cmd {
	case ipc.CmdStatus:
		fmt.Printf("state: %s\nlevel: %.2f\n", reply.State, reply.Level)
	default:
		fmt.Println("ok:", reply.State)
	}
}
