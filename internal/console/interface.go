package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"locator-healing/internal/entity"
	"locator-healing/internal/usecase"
	"locator-healing/pkg/apperr"
	"locator-healing/pkg/logg"
)

var errExit = errors.New("exit")

type Interface struct {
	logger   *zap.Logger
	usecase  *usecase.Service
	shutdown fx.Shutdowner
	in       io.Reader
	out      io.Writer
	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	stopping atomic.Bool
}

type Params struct {
	fx.In

	Logger     *zap.Logger
	Usecase    *usecase.Service
	Shutdowner fx.Shutdowner `optional:"true"`
}

func NewInterface(params Params) *Interface {
	return newInterface(params, os.Stdin, os.Stdout)
}

func newInterface(params Params, in io.Reader, out io.Writer) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		logger:   params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase:  params.Usecase,
		shutdown: params.Shutdowner,
		in:       in,
		out:      out,
		ctx:      ctx,
		cancel:   cancel,
		sigChan:  make(chan os.Signal, 1),
	}
}

// Start runs the read loop until exit, EOF or an interrupt. It asks the fx app
// to shut down on the way out.
func (i *Interface) Start() error {
	i.printBanner()
	i.printHelp()

	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(i.sigChan)

	go func() {
		select {
		case <-i.sigChan:
			fmt.Fprintln(i.out, "\nInterrupt received, shutting down...")
			i.requestShutdown()
		case <-i.ctx.Done():
		}
	}()

	i.loop()
	i.requestShutdown()

	return nil
}

func (i *Interface) loop() {
	scanner := bufio.NewScanner(i.in)

	for !i.stopping.Load() {
		fmt.Fprint(i.out, "\n> ")

		if !scanner.Scan() {
			return
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				return
			}

			i.logger.Error("Command error", zap.String(logg.Command, input), zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}
}

func (i *Interface) requestShutdown() {
	if i.shutdown == nil {
		return
	}

	if err := i.shutdown.Shutdown(); err != nil {
		i.logger.Debug("Shutdown request ignored", zap.Error(err))
	}
}

func (i *Interface) Stop() error {
	if i.stopping.Swap(true) {
		return nil
	}

	i.logger.Info("Stopping console interface...")
	i.cancel()

	return nil
}

func (i *Interface) handleCommand(input string) error {
	command, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch command {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	case "open":
		return i.open(args)
	case "find":
		return i.find(args)
	case "history":
		return i.history(args)
	default:
		return apperr.InvalidReqError("Console", "command", fmt.Errorf("unknown command %q, type help", command))
	}
}

func (i *Interface) open(url string) error {
	if url == "" {
		return apperr.InvalidReqError("Console", "url", errors.New("usage: open <url>"))
	}

	if err := i.usecase.Browser.Navigate(i.ctx, url); err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Opened %s\n", url)

	return nil
}

func (i *Interface) find(args string) error {
	original, description, err := parseFindArgs(args)
	if err != nil {
		return err
	}

	session, err := i.usecase.Browser.Session(i.ctx)
	if err != nil {
		return err
	}

	el, err := i.usecase.Healer.Find(i.ctx, session, original, description)
	if err != nil {
		fmt.Fprintf(i.out, "Not found: %s\n", original)

		return nil
	}

	text, err := el.Text(i.ctx)
	if err != nil {
		i.logger.Debug("Element text unavailable", zap.Error(err))
	}

	fmt.Fprintf(i.out, "Found %s", original)

	if text = strings.TrimSpace(text); text != "" {
		fmt.Fprintf(i.out, " (text %q)", truncate(text, 80))
	}

	fmt.Fprintln(i.out)

	return nil
}

func (i *Interface) history(args string) error {
	if args == "" {
		return apperr.InvalidReqError("Console", "locator", errors.New("usage: history <locator>"))
	}

	original, err := entity.ParseLocator(args)
	if err != nil {
		return err
	}

	learned := i.usecase.History.Lookup(original)
	if len(learned) == 0 {
		fmt.Fprintf(i.out, "No substitutes learned for %s\n", original)

		return nil
	}

	fmt.Fprintf(i.out, "Substitutes for %s:\n", original)

	for n, l := range learned {
		fmt.Fprintf(i.out, "  %d. %s\n", n+1, l)
	}

	return nil
}

// descriptionSeparator cannot occur in a locator, so XPath unions keep their "|".
const descriptionSeparator = " -- "

// parseFindArgs splits "<locator> [-- description]".
func parseFindArgs(args string) (entity.Locator, string, error) {
	raw, description, _ := strings.Cut(" "+args+" ", descriptionSeparator)

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return entity.Locator{}, "", apperr.InvalidReqError("Console", "locator", errors.New("usage: find <locator> [-- description]"))
	}

	original, err := entity.ParseLocator(raw)
	if err != nil {
		return entity.Locator{}, "", err
	}

	return original, strings.TrimSpace(description), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, `
+-----------------------------------------------------------+
|                                                           |
|                 Self-healing locator console              |
|                                                           |
+-----------------------------------------------------------+`)
}

func (i *Interface) printHelp() {
	fmt.Fprintln(i.out, `
Available commands:
  open <url>                      - Navigate the browser
  find <locator> [-- description] - Look up an element, healing if needed
  history <locator>               - Show substitutes learned for a locator
  help, h                         - Show this help message
  exit, quit, q                   - Exit the application

Locators are written as kind:value, for example:
  id:login-btn
  css:#submit
  xpath://button[text()='Sign in']
  attr-contains:data-test-id=login`)
}
