package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"armonia/internal/api"
	"armonia/internal/config"
	"armonia/internal/models"
	"armonia/internal/services"
	"armonia/pkg/logger"
)

// errInputClosed reports that stdin is exhausted while a prompt was waiting.
// Run treats it like EOF at the main prompt: leave quietly.
var errInputClosed = errors.New("input closed")

// App wires the services behind the interactive terminal shell.
type App struct {
	ctx     context.Context
	cfg     *config.Config
	log     *logger.Logger
	api     *api.Client
	chat    *services.ChatService
	sidebar *services.SidebarService
	cleanup *services.CleanupService
	dbClose func() error

	in  *bufio.Scanner
	out io.Writer

	// chats as last printed, so /open and /delete can take list numbers
	listed []models.ChatHistory
}

// NewApp creates a new App application struct
func NewApp(cfg *config.Config, log *logger.Logger, client *api.Client, chat *services.ChatService, sidebar *services.SidebarService, cleanup *services.CleanupService, in io.Reader, out io.Writer) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		api:     client,
		chat:    chat,
		sidebar: sidebar,
		cleanup: cleanup,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// startup saves the context and brings the services up.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.chat.Startup(ctx)
	a.sidebar.Startup(ctx)
	a.cleanup.Start(ctx)
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown() {
	a.cleanup.Stop()
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			a.log.Error("failed to close database", zap.Error(err))
		}
		a.dbClose = nil
	}
	_ = a.log.Sync()
}

// Run drives the interactive loop until the input ends, /quit is entered or
// the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if !a.api.IsAuthenticated() {
		if err := a.login(ctx); err != nil {
			if errors.Is(err, errInputClosed) {
				return a.in.Err()
			}
			return err
		}
	}

	a.chat.NewChat()
	a.printf("Armonia ready. /help lists commands.\n")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		a.printf("you> ")
		if !a.in.Scan() {
			return a.in.Err()
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := a.command(ctx, line)
			if errors.Is(err, errInputClosed) {
				return a.in.Err()
			}
			if err != nil {
				a.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
			continue
		}

		a.ask(ctx, line)
	}
}

func (a *App) command(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	}

	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		a.printf("commands: /new /chats /open <n> /delete <n> /upload <path> /logout /quit\n")
	case "/new":
		a.chat.NewChat()
		a.printf("started a new chat\n")
	case "/chats":
		return false, a.listChats()
	case "/open":
		id, err := a.chatIDForArg(arg)
		if err != nil {
			return false, err
		}
		if err := a.chat.SelectChat(id); err != nil {
			return false, err
		}
		a.replay()
	case "/delete":
		id, err := a.chatIDForArg(arg)
		if err != nil {
			return false, err
		}
		if err := a.sidebar.Delete(id); err != nil {
			return false, err
		}
		a.printf("deleted\n")
	case "/upload":
		if arg == "" {
			return false, errors.New("usage: /upload <path>")
		}
		resp, err := a.api.Upload(ctx, arg, a.cfg.KnowledgeBaseID)
		if err != nil {
			return false, err
		}
		a.printf("%s\n", resp.Message)
	case "/logout":
		if err := a.api.Logout(); err != nil {
			return false, err
		}
		a.printf("logged out\n")
		return false, a.login(ctx)
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

func (a *App) ask(ctx context.Context, question string) {
	var msg *models.Message
	var err error
	if a.cfg.StreamReplies {
		a.printf("armonia> ")
		msg, err = a.chat.SubmitStream(ctx, question, func(delta string) {
			a.printf("%s", delta)
		})
		a.printf("\n")
	} else {
		msg, err = a.chat.Submit(ctx, question)
		if msg != nil {
			a.printf("armonia> %s\n", msg.Content)
		}
	}
	if err != nil {
		a.printf("error: %v\n", err)
		return
	}
	if msg == nil {
		return
	}
	if msg.Reasoning != "" {
		a.printf("  (reasoning attached, %d chars)\n", len(msg.Reasoning))
	}
	a.printSources(msg.Sources)
}

// login prompts for credentials until the backend accepts them. A closed
// input stream ends the loop instead of retrying on empty reads.
func (a *App) login(ctx context.Context) error {
	for {
		email, ok := a.prompt("email: ")
		if !ok {
			return errInputClosed
		}
		password, ok := a.prompt("password: ")
		if !ok {
			return errInputClosed
		}
		if email == "" || password == "" {
			a.printf("email and password are required\n")
			continue
		}
		resp, err := a.api.Login(ctx, email, password)
		if err != nil {
			var remote *api.RemoteError
			if errors.As(err, &remote) {
				a.printf("login failed: %s\n", remote.Message)
				continue
			}
			return err
		}
		a.printf("welcome, %s\n", resp.User.Email)
		return nil
	}
}

func (a *App) listChats() error {
	histories, err := a.sidebar.List()
	if err != nil {
		return err
	}
	a.listed = histories
	if len(histories) == 0 {
		a.printf("no stored chats\n")
		return nil
	}
	active := a.chat.ActiveChatID()
	for i, h := range histories {
		marker := " "
		if h.ID == active {
			marker = "*"
		}
		a.printf("%s %2d. %s (%d messages)\n", marker, i+1, h.Title, len(h.Messages))
	}
	return nil
}

// chatIDForArg resolves a /chats list number, falling back to a raw id.
func (a *App) chatIDForArg(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("which chat? run /chats first")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(a.listed) {
			return "", fmt.Errorf("no chat numbered %d, run /chats", n)
		}
		return a.listed[n-1].ID, nil
	}
	return arg, nil
}

func (a *App) replay() {
	for _, msg := range a.chat.Messages() {
		switch msg.Role {
		case models.RoleUser:
			a.printf("you> %s\n", msg.Content)
		case models.RoleAssistant:
			a.printf("armonia> %s\n", msg.Content)
			a.printSources(msg.Sources)
		}
	}
}

func (a *App) printSources(sources []models.Source) {
	if len(sources) == 0 {
		return
	}
	a.printf("  sources:\n")
	for _, src := range sources {
		if src.URL != "" {
			a.printf("  - %s (%s)\n", src.Title, src.URL)
		} else {
			a.printf("  - %s\n", src.Title)
		}
	}
}

// prompt reads one line; ok is false once the input is exhausted.
func (a *App) prompt(label string) (value string, ok bool) {
	a.printf("%s", label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
