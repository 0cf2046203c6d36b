// Command sonar-client plays Sonar from a terminal against a remote server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/bcspragu/Sonar/client"
	sio "github.com/bcspragu/Sonar/io"
	"github.com/bcspragu/Sonar/room"
	"github.com/bcspragu/Sonar/sonar"
	"github.com/bcspragu/Sonar/web"
	"github.com/namsral/flag"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		serverScheme = flag.String("server_scheme", "http", "The scheme of the server to connect to to play the game.")
		serverAddr   = flag.String("server_addr", "localhost:8080", "The address of the server to connect to to play the game.")
		roomToJoin   = flag.String("room_to_join", "", "The ID of the room to join, will create one if its blank")
		name         = flag.String("name", "", "The name to play under")
		langFlag     = flag.String("language", string(sonar.DefaultLanguage), "Language to play in, if creating a room")
		catFlag      = flag.String("category", "mixed", "Category of the goal word, if creating a room")
		botsFlag     = flag.String("bots", "", "Comma-separated difficulties of bots to add, if creating a room")
		logLevel     = flag.String("log_level", "warn", "Minimum level to log at")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if *name == "" {
		log.Fatal().Msg("--name must be specified")
	}

	c, err := client.New(*serverScheme, *serverAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client")
	}
	if _, err := c.CreatePlayer(*name); err != nil {
		log.Fatal().Err(err).Msg("failed to create player")
	}

	host := *roomToJoin == ""
	rID := sonar.RoomID(*roomToJoin)
	if host {
		settings, err := room.ParseSettings(*langFlag, *catFlag, *botsFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("bad room settings")
		}
		if rID, err = c.CreateRoom(); err != nil {
			log.Fatal().Err(err).Msg("failed to create room")
		}
		if err := c.UpdateSettings(rID, settings); err != nil {
			log.Fatal().Err(err).Msg("failed to apply settings")
		}
		fmt.Printf("Created room %q\n", rID)
	} else if err := c.JoinRoom(rID); err != nil {
		log.Fatal().Err(err).Msg("failed to join room")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	var once sync.Once
	h := hooks(os.Stdout, func() { once.Do(func() { close(started) }) }, func() {
		cancel()
		os.Exit(0)
	})
	go func() {
		if err := c.ListenForUpdates(ctx, rID, h); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("lost connection to the server")
		}
	}()

	in := bufio.NewReader(os.Stdin)
	if host {
		for {
			fmt.Print("Press ENTER to start the game")
			if _, err := in.ReadString('\n'); err != nil {
				return
			}
			if err := c.StartGame(rID); err != nil {
				log.Error().Err(err).Msg("failed to start game")
				continue
			}
			break
		}
	} else {
		fmt.Println("Waiting for the host to start the game...")
		<-started
	}

	p := &sio.Player{In: in, Out: os.Stdout}
	for {
		word, err := p.Guess(*name, 0)
		if err != nil || strings.EqualFold(word, sio.Quit) {
			fmt.Println("Leaving the game.")
			return
		}

		e, err := c.Guess(rID, word)
		switch {
		case client.StatusCode(err) == http.StatusConflict:
			fmt.Println("Hold on, it isn't your turn.")
		case err != nil:
			log.Error().Err(err).Msg("failed to guess")
		case !e.Valid:
			// Valid guesses show up over the websocket, like everyone else's.
			sio.PrintGuess(os.Stdout, e)
		}
	}
}

func hooks(out io.Writer, onStart, onEnd func()) client.WSHooks {
	return client.WSHooks{
		OnPlayerJoined: func(pj *web.PlayerJoined) {
			fmt.Fprintf(out, "%s is in the room\n", pj.Player.Name)
		},
		OnSettings: func(sc *web.SettingsChanged) {
			s := sc.State.Settings
			fmt.Fprintf(out, "Playing in %s, category %s, with %d bots\n", s.Language, s.Category, len(s.Bots))
		},
		OnStart: func(gs *web.GameStart) {
			fmt.Fprintf(out, "--- GAME START --- %s goes first\n", gs.State.PlayerName(gs.State.Turn))
			onStart()
		},
		OnGuess: func(gm *web.GuessMade) {
			sio.PrintGuess(out, gm.Guess)
		},
		OnSkip: func(ts *web.TurnSkipped) {
			fmt.Fprintf(out, "%s skipped their turn\n", ts.Player.Name)
		},
		OnEnd: func(ge *web.GameEnd) {
			fmt.Fprintf(out, "\n!!! %s WON THE GAME !!!\nThe word was: %s\n", ge.Result.Winner, ge.Result.GoalWord)
			fmt.Fprintln(out, "\n--- LEADERBOARD ---")
			sio.PrintLeaderboard(out, ge.State.Players)
			onEnd()
		},
	}
}
