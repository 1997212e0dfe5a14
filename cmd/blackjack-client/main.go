package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjacktables/internal/deck"
	"github.com/lox/blackjacktables/internal/game"
	"github.com/lox/blackjacktables/internal/server"
)

var CLI struct {
	Server   string `short:"s" long:"server" default:"ws://localhost:8080/ws" help:"Server URL to connect to"`
	Login    string `short:"p" long:"login" help:"Player login"`
	Table    string `short:"t" long:"table" default:"main" help:"Table to join"`
	LogLevel string `short:"l" long:"log-level" default:"warn" help:"Log level"`
}

var (
	styleHeader = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#04B575")).
			Padding(0, 1).
			Bold(true)
	styleCardRed = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
	styleCardBlack = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Bold(true)
	styleWinner = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)
	styleTurn = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#74B9FF")).
			Bold(true)
	styleDim = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

func main() {
	kctx := kong.Parse(&CLI)

	logger := log.New(os.Stderr)
	switch CLI.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}

	login := CLI.Login
	if login == "" {
		fmt.Print("Enter your login: ")
		var input string
		_, _ = fmt.Scanln(&input)
		login = strings.TrimSpace(input)
		if login == "" {
			fmt.Println("Login is required")
			kctx.Exit(1)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(CLI.Server, nil)
	if err != nil {
		fmt.Printf("Failed to connect to server: %v\n", err)
		kctx.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	fmt.Println(styleHeader.Render(" Blackjack "))
	fmt.Println(styleDim.Render("Connected to " + CLI.Server))
	fmt.Println(styleDim.Render("Commands: bet N, hit, stand, double, split, surrender, insurance N, switch N, quit"))
	fmt.Println()

	send(conn, server.MessageTypeJoinTable, server.JoinTableData{
		Table: CLI.Table,
		Login: login,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg server.Message
			if err := conn.ReadJSON(&msg); err != nil {
				logger.Debug("read error", "error", err)
				return
			}
			render(login, &msg)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := strings.ToLower(fields[0])

		amount := 0
		if len(fields) > 1 {
			amount, _ = strconv.Atoi(fields[1])
		}

		switch cmd {
		case "quit", "exit":
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			<-done
			return
		case "bet":
			send(conn, server.MessageTypePlaceBet, server.PlaceBetData{Amount: amount})
		case "hit", "stand", "double", "split", "surrender", "insurance", "switch":
			send(conn, server.MessageTypePlayerAction, server.PlayerActionData{
				Action: cmd,
				Amount: amount,
			})
		default:
			fmt.Println(styleDim.Render("Unknown command: " + cmd))
		}
	}
	<-done
}

func send(conn *websocket.Conn, mt server.MessageType, data interface{}) {
	msg, err := server.NewMessage(mt, data)
	if err != nil {
		fmt.Printf("Failed to encode message: %v\n", err)
		return
	}
	if err := conn.WriteJSON(msg); err != nil {
		fmt.Printf("Failed to send message: %v\n", err)
	}
}

// render pretty-prints a server message
func render(me string, msg *server.Message) {
	switch msg.Type {
	case server.MessageTypeTableJoined:
		var data server.TableJoinedData
		if json.Unmarshal(msg.Data, &data) == nil {
			fmt.Printf("Joined %s as %s with %d chips (bets %d-%d)\n",
				data.Table, data.Login, data.Balance, data.MinBet, data.MaxBet)
		}

	case server.MessageTypeBettingOpen:
		var data server.BettingOpenData
		if json.Unmarshal(msg.Data, &data) == nil {
			fmt.Println(styleTurn.Render("Betting is open") +
				styleDim.Render(" until "+data.EndsAt.Format("15:04:05")))
		}

	case server.MessageTypeBetAccepted:
		var data server.BetAcceptedData
		if json.Unmarshal(msg.Data, &data) == nil {
			fmt.Printf("%s bet %d\n", data.Login, data.Amount)
		}

	case server.MessageType(game.EventTypeRoundStart):
		var ev game.RoundStartEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			fmt.Println()
			fmt.Println(styleHeader.Render(" New round "))
			fmt.Printf("Dealer shows %s\n", cardString(ev.DealerUpCard))
		}

	case server.MessageType(game.EventTypePlayerTurn):
		var ev game.PlayerTurnEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			if ev.Login == me {
				fmt.Println(styleTurn.Render("Your turn") +
					styleDim.Render(" (until "+ev.EndsAt.Format("15:04:05")+")"))
			} else {
				fmt.Println(styleDim.Render(ev.Login + " to act"))
			}
		}

	case server.MessageType(game.EventTypePlayerUpdate):
		var ev game.PlayerUpdateEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			renderPlayer(me, ev)
		}

	case server.MessageType(game.EventTypeRoundResult):
		var ev game.RoundResultEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			fmt.Printf("Dealer: %s\n", handString(ev.DealerHand))
			for _, pr := range ev.Players {
				line := fmt.Sprintf("%s: %s (%s)", pr.Login, handString(pr.Hand), pr.Outcome)
				if pr.Payout > 0 {
					line += styleWinner.Render(fmt.Sprintf(" +%d", pr.Payout))
				}
				fmt.Println(line)
			}
		}

	case server.MessageType(game.EventTypePayouts):
		var ev game.PayoutsEvent
		if json.Unmarshal(msg.Data, &ev) == nil {
			if len(ev.Leaderboard) > 0 {
				fmt.Println(styleDim.Render("Leaderboard:"))
				for i, entry := range ev.Leaderboard {
					fmt.Printf("  %d. %s %d\n", i+1, entry.Login, entry.Chips)
				}
			}
			for _, login := range ev.Broke {
				fmt.Println(styleDim.Render(login + " is out of chips"))
			}
		}

	case server.MessageTypeError:
		var data server.ErrorData
		if json.Unmarshal(msg.Data, &data) == nil {
			fmt.Println(styleDim.Render("error: " + data.Message))
		}

	default:
		// Other event types carry no client-facing detail
	}
}

func renderPlayer(me string, ev game.PlayerUpdateEvent) {
	name := ev.Login
	if ev.Login == me {
		name = name + " (you)"
	}
	if len(ev.Hands) > 0 {
		for i, hand := range ev.Hands {
			marker := "  "
			if i == ev.ActiveHand {
				marker = "> "
			}
			fmt.Printf("%s%s hand %d: %s\n", marker, name, i+1, handString(hand))
		}
		return
	}
	fmt.Printf("%s: %s\n", name, handString(ev.Hand))
}

func handString(cards []deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = cardString(c)
	}
	return strings.Join(parts, " ")
}

func cardString(c deck.Card) string {
	if c.IsRed() {
		return styleCardRed.Render(c.String())
	}
	return styleCardBlack.Render(c.String())
}
