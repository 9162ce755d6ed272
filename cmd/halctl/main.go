package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dougsko/audiohal/pkg/client"
	"github.com/dougsko/audiohal/pkg/routing"
)

var (
	socketPath = flag.String("socket", "/tmp/audiohald.sock", "Unix socket path")
	command    = flag.String("cmd", "", "Command to send (e.g., 'STATUS', 'ROUTE:voip bt/in')")
)

func main() {
	flag.Parse()

	if *socketPath == "" {
		fmt.Fprintf(os.Stderr, "Socket path is required\n")
		os.Exit(1)
	}

	if *command == "" {
		if len(flag.Args()) > 0 {
			*command = strings.Join(flag.Args(), " ")
		} else {
			showHelp()
			return
		}
	}

	c := client.NewSocketClient(*socketPath)

	response, err := c.SendCommand(*command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", response.String())

	// A failed route exits with 2 so scripts can tell it from a connection error.
	if !response.Success {
		if response.Code != 0 {
			fmt.Fprintf(os.Stderr, "status: %s\n", routing.Status(response.Code))
		}
		os.Exit(2)
	}
}

func showHelp() {
	fmt.Println("halctl - audio routing daemon control tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -socket <path>    Unix socket path (default: /tmp/audiohald.sock)")
	fmt.Println("  -cmd <command>    Command to send")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  STATUS                          Get routing state")
	fmt.Println("  ROUTE:<role> <tag>/<dir>,...    Route devices for a role")
	fmt.Println("  ROUTE:reset /out                Clear active output devices")
	fmt.Println("  OPTION:<role> <name> <value>    Send a route option")
	fmt.Println("  HISTORY                         Get recent journaled routes")
	fmt.Println("  HISTORY:10                      Get last 10 journaled routes")
	fmt.Println("  DEVICES                         List routable devices")
	fmt.Println("  PING                            Test connection")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s STATUS\n", os.Args[0])
	fmt.Printf("  %s 'ROUTE:media builtin-speaker/out,builtin-mic/in'\n", os.Args[0])
	fmt.Printf("  %s 'ROUTE:voip bt/in'\n", os.Args[0])
	fmt.Printf("  echo 'STATUS' | nc -U /tmp/audiohald.sock\n")
}
