package main

import (
	"bufio"
	"chatlink/api"
	"chatlink/domain"
	"chatlink/internal"
	"chatlink/projection"
	"chatlink/push"
	"chatlink/repositories"
	"chatlink/runtime"
	"chatlink/services"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages their lifecycle, and centralizes
// error reporting, keeping defer-based cleanup out of main.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Credential store (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("credential store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing credential store...")
		_ = db.Close()
	}()

	// 3. Wiring: transport, read models, router, services
	client := api.NewClient(config.BaseURL, log)
	roster := projection.NewRoster(client)
	timelines := projection.NewTimelines(client, config.MessagePageSize)
	router := runtime.NewRouter(log, roster, timelines)
	creds := repositories.NewTokenRepository(db, log)
	sessions := services.NewSessionService(log, client, creds, roster, timelines, router,
		config.BaseURL, config.ConnectionBufferSize)
	sender := services.NewSendService(log, client, roster)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		// Tear the push channel down before the Badger handle goes away.
		_ = sessions.Logout()
	}()

	// 5. Resume any stored session, then hand over to the prompt
	sess, err := sessions.Resume(ctx)
	if err != nil {
		return fmt.Errorf("session resume failed: %w", err)
	}
	if sess.Authenticated() {
		color.Green.Printf("Welcome back, %s!\n", sess.User.Username)
		if err := roster.Refresh(ctx); err != nil {
			log.Warn("Initial roster refresh failed", "error", err)
		}
	} else {
		color.Yellow.Println("Not logged in. Use /login <user> <password> or /register <user> <email> <password>.")
	}

	repl := &prompt{
		ctx:       ctx,
		api:       client,
		sessions:  sessions,
		sender:    sender,
		roster:    roster,
		timelines: timelines,
		router:    router,
	}
	return repl.loop()
}

// prompt is the interactive shell over the synchronization subsystem.
// It only reads snapshots from the projections; all mutations go through
// the services.
type prompt struct {
	ctx       context.Context
	api       *api.Client
	sessions  *services.SessionService
	sender    *services.SendService
	roster    *projection.Roster
	timelines *projection.Timelines
	router    *runtime.Router
}

func (p *prompt) loop() error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(p.promptLabel())
		if p.ctx.Err() != nil || !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		p.dispatch(line)
	}
}

func (p *prompt) promptLabel() string {
	sess := p.sessions.Session()
	if !sess.Authenticated() {
		return "> "
	}
	if active := p.router.ActiveChat(); active != "" {
		if chat, ok := p.roster.Get(active); ok {
			return fmt.Sprintf("[%s] > ", p.chatLabel(chat))
		}
	}
	return fmt.Sprintf("(%s) > ", sess.User.Username)
}

func (p *prompt) dispatch(line string) {
	if !strings.HasPrefix(line, "/") {
		p.sendText(line)
		return
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/login":
		p.login(args)
	case "/register":
		p.register(args)
	case "/logout":
		_ = p.sessions.Logout()
		p.router.ClearActiveChat()
		color.Yellow.Println("Logged out.")
	case "/chats":
		p.showChats()
	case "/open":
		p.open(args)
	case "/close":
		p.router.ClearActiveChat()
	case "/send":
		p.sendText(strings.Join(args, " "))
	case "/upload":
		p.upload(args)
	case "/search":
		p.search(args)
	case "/newchat":
		p.newChat(args)
	case "/reconnect":
		if err := p.sessions.Reconnect(p.ctx); err != nil {
			color.Red.Printf("Reconnect failed: %v\n", err)
		} else {
			color.Green.Printf("Push channel: %s\n", p.sessions.ConnectionState())
		}
	case "/status":
		p.showStatus()
	case "/help":
		p.showHelp()
	default:
		color.Red.Printf("Unknown command %s (try /help)\n", cmd)
	}
}

func (p *prompt) login(args []string) {
	if len(args) != 2 {
		color.Red.Println("Usage: /login <username> <password>")
		return
	}
	sess, err := p.sessions.Login(p.ctx, args[0], args[1])
	if err != nil {
		color.Red.Printf("Login failed: %v\n", err)
		return
	}
	color.Green.Printf("Logged in as %s\n", sess.User.Username)
	p.refreshRoster()
}

func (p *prompt) register(args []string) {
	if len(args) != 3 {
		color.Red.Println("Usage: /register <username> <email> <password>")
		return
	}
	sess, err := p.sessions.Register(p.ctx, args[0], args[1], args[2])
	if err != nil {
		color.Red.Printf("Registration failed: %v\n", err)
		return
	}
	color.Green.Printf("Registered and logged in as %s\n", sess.User.Username)
}

func (p *prompt) refreshRoster() {
	if err := p.roster.Refresh(p.ctx); err != nil {
		color.Red.Printf("Could not fetch chats: %v\n", err)
	}
}

func (p *prompt) showChats() {
	p.refreshRoster()
	chats := p.roster.List()
	if len(chats) == 0 {
		color.Yellow.Println("No chats yet. Use /newchat to start one.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Name", "Type", "Participants", "Last activity"})
	for i, chat := range chats {
		kind := "private"
		if chat.IsGroup {
			kind = "group"
		}
		last := ""
		if chat.LastMessageAt != nil {
			last = chat.LastMessageAt.Local().Format("Jan 2 15:04")
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			p.chatLabel(chat),
			kind,
			strconv.Itoa(len(chat.Participants)),
			last,
		})
	}
	table.Render()
}

// open switches the active chat view by roster position and loads its
// snapshot. From here on the router appends live messages for this chat.
func (p *prompt) open(args []string) {
	if len(args) != 1 {
		color.Red.Println("Usage: /open <chat number from /chats>")
		return
	}
	idx, err := strconv.Atoi(args[0])
	chats := p.roster.List()
	if err != nil || idx < 1 || idx > len(chats) {
		color.Red.Println("No such chat; run /chats first.")
		return
	}
	chat := chats[idx-1]
	p.router.SetActiveChat(chat.ID)
	if err := p.timelines.Load(p.ctx, chat.ID); err != nil {
		color.Red.Printf("Could not load messages: %v\n", err)
	}
	p.showTimeline(chat.ID)
}

func (p *prompt) showTimeline(chatID string) {
	me := p.sessions.Session().User.ID
	for _, msg := range p.timelines.Messages(chatID) {
		stamp := msg.CreatedAt.Local().Format("15:04")
		body := msg.Content
		if msg.Type != domain.MessageTypeText && msg.FileName != "" {
			body = fmt.Sprintf("[%s: %s]", msg.Type, msg.FileName)
		}
		if msg.SenderID == me {
			color.Cyan.Printf("%s you: %s\n", stamp, body)
		} else {
			color.White.Printf("%s %s: %s\n", stamp, msg.SenderUsername, body)
		}
	}
}

// sendText sends to the active chat. The message shows up in the timeline
// only once the push channel echoes it back.
func (p *prompt) sendText(content string) {
	active := p.router.ActiveChat()
	if active == "" {
		color.Red.Println("Open a chat first (/chats then /open <n>).")
		return
	}
	if _, err := p.sender.SendText(p.ctx, active, content); err != nil {
		color.Red.Printf("Send failed: %v\n", err)
	}
}

func (p *prompt) upload(args []string) {
	active := p.router.ActiveChat()
	if active == "" || len(args) != 1 {
		color.Red.Println("Usage (with a chat open): /upload <path>")
		return
	}
	upload, msgType, err := p.sender.UploadFile(p.ctx, args[0])
	if err != nil {
		color.Red.Printf("Upload failed: %v\n", err)
		return
	}
	if _, err := p.sender.Send(p.ctx, active, upload.FileName, msgType, &upload); err != nil {
		color.Red.Printf("Send failed: %v\n", err)
	}
}

func (p *prompt) search(args []string) {
	if len(args) == 0 {
		color.Red.Println("Usage: /search <username fragment>")
		return
	}
	users, err := p.api.SearchUsers(p.ctx, strings.Join(args, " "))
	if err != nil {
		color.Red.Printf("Search failed: %v\n", err)
		return
	}
	for _, u := range users {
		fmt.Printf("  %s  (%s)\n", u.Username, u.ID)
	}
	if len(users) == 0 {
		color.Yellow.Println("No users found.")
	}
}

func (p *prompt) newChat(args []string) {
	if len(args) == 0 {
		color.Red.Println("Usage: /newchat <user id> [<user id>... <name>] (2+ ids make a group)")
		return
	}
	isGroup := len(args) > 1
	name := ""
	participants := args
	if isGroup {
		name = args[len(args)-1]
		participants = args[:len(args)-1]
	}
	chat, err := p.sender.CreateChat(p.ctx, participants, isGroup, name)
	if err != nil {
		color.Red.Printf("Chat creation failed: %v\n", err)
		return
	}
	color.Green.Printf("Chat ready: %s\n", p.chatLabel(chat))
}

func (p *prompt) showStatus() {
	sess := p.sessions.Session()
	fmt.Printf("Session: %s", sess.State)
	if sess.Authenticated() {
		fmt.Printf(" (%s)", sess.User.Username)
	}
	fmt.Printf("  Push channel: %s\n", p.sessions.ConnectionState())
	if p.sessions.ConnectionState() == push.StateClosedError {
		color.Yellow.Println("Connection lost; /reconnect to resume live updates.")
	}
}

func (p *prompt) showHelp() {
	fmt.Println(`Commands:
  /login <user> <password>            authenticate
  /register <user> <email> <password> create an account
  /chats                              list conversations
  /open <n>                           open chat n from the list
  /close                              leave the chat view
  /send <text> (or just type)         send to the open chat
  /upload <path>                      send a file or image
  /search <name>                      find users
  /newchat <ids...> [name]            start a private or group chat
  /reconnect                          reopen the push channel
  /status /logout /quit`)
}

// chatLabel prefers the backend-provided name and falls back to the other
// participants' ids for unnamed chats.
func (p *prompt) chatLabel(chat domain.Chat) string {
	if chat.Name != "" {
		return chat.Name
	}
	me := p.sessions.Session().User.ID
	others := lo.Without(chat.Participants, me)
	if len(others) == 0 {
		return chat.ID
	}
	return strings.Join(others, ", ")
}
