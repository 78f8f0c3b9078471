package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"chatrelay/internal/client"
	"chatrelay/pkg/protocol"
)

// Terminal client for poking at a running relay without the GUI.
func main() {
	addr := flag.String("addr", "127.0.0.1:12345", "relay address")
	flag.Parse()

	// Keep structured logs out of the interactive session.
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("username: ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	core := client.NewClient()
	if err := core.Connect(*addr); err != nil {
		fmt.Println("cannot connect to relay:", err)
		os.Exit(1)
	}
	defer core.Close()
	core.Start()
	core.Login(username)

	go printServerFrames(core)
	readCommands(reader, core)
}

func printServerFrames(c *client.Client) {
	for msg := range c.Incoming() {
		switch msg.Command {
		case protocol.UpdateUserList:
			users, err := msg.Users()
			if err != nil {
				continue
			}
			fmt.Printf("\n--- online: %s\n", strings.Join(users, ", "))
		case protocol.UpdateGroupList:
			groups, err := msg.Groups()
			if err != nil {
				continue
			}
			fmt.Println("\n--- groups:")
			for name, members := range groups {
				fmt.Printf("    %s (%d): %s\n", name, len(members), strings.Join(members, ", "))
			}
		case protocol.RecvPrivate:
			p, err := msg.AsPrivateRecv()
			if err != nil {
				continue
			}
			fmt.Printf("\n[%s → you] %s\n", p.Sender, p.Message)
		case protocol.RecvGroup:
			p, err := msg.AsGroupRecv()
			if err != nil {
				continue
			}
			fmt.Printf("\n[%s] %s: %s\n", p.Group, p.Sender, p.Message)
		case protocol.Error:
			text, _ := msg.Text()
			fmt.Printf("\n[server error] %s\n", text)
		}
		fmt.Print("> ")
	}
	fmt.Println("\ndisconnected from server")
	os.Exit(0)
}

func readCommands(reader *bufio.Reader, c *client.Client) {
	fmt.Println("--- commands ---")
	fmt.Println("/pm <user> <message>     private message")
	fmt.Println("/create <group>          create a group")
	fmt.Println("/join <group>            join a group")
	fmt.Println("/g <group> <message>     message a group")
	fmt.Println("/quit                    exit")
	fmt.Println("----------------")

	for {
		fmt.Print("> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		parts := strings.SplitN(input, " ", 2)
		switch parts[0] {
		case "/quit":
			return
		case "/create":
			if len(parts) == 2 {
				c.CreateGroup(strings.TrimSpace(parts[1]))
			}
		case "/join":
			if len(parts) == 2 {
				c.JoinGroup(strings.TrimSpace(parts[1]))
			}
		case "/pm":
			if len(parts) == 2 {
				if rest := strings.SplitN(parts[1], " ", 2); len(rest) == 2 {
					c.SendPrivate(rest[0], rest[1])
					// The relay never echoes to the sender.
					fmt.Printf("[you → %s] %s\n", rest[0], rest[1])
				}
			}
		case "/g":
			if len(parts) == 2 {
				if rest := strings.SplitN(parts[1], " ", 2); len(rest) == 2 {
					c.SendGroupMessage(rest[0], rest[1])
					fmt.Printf("[%s] you: %s\n", rest[0], rest[1])
				}
			}
		default:
			fmt.Println("unknown command; try /pm, /create, /join, /g, /quit")
		}
	}
}
