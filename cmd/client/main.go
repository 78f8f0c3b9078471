package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"chatrelay/internal/client"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:12345", "relay address")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var username string
	if flag.NArg() > 0 {
		username = flag.Arg(0)
	} else {
		username = fmt.Sprintf("user_%d", time.Now().UnixNano()%1000)
		fmt.Printf("no username given, using %s (usage: client [-addr host:port] <username>)\n", username)
	}

	core := client.NewClient()
	if err := core.Connect(*addr); err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("cannot connect to relay")
	}
	defer core.Close()

	core.Start()
	core.Login(username)

	gui := client.NewUI(app.New(), core)
	gui.Run()
}
