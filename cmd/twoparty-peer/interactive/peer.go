// Package interactive provides the interactive command-line interface
// for twoparty-peer.
package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/fxamacker/cbor/v2"

	"github.com/mash-protocol/twoparty-go/pkg/async"
	"github.com/mash-protocol/twoparty-go/pkg/twoparty"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

// Peer handles interactive mode for twoparty-peer.
type Peer struct {
	rl        *readline.Instance
	conn      *twoparty.Connection
	closeOnce sync.Once

	mu      sync.Mutex
	sent    int
	recv    int
	pending *async.Future[*twoparty.IncomingMessage]
	watch   bool
}

// New creates a new interactive peer handler.
func New(side wire.Side) (*Peer, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          strings.ToLower(side.String()) + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Peer{rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (p *Peer) Stdout() io.Writer {
	return p.rl.Stdout()
}

// Close releases the terminal. It is safe to call more than once.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.rl.Close()
	})
}

// Run starts the interactive command loop.
func (p *Peer) Run(ctx context.Context, cancel context.CancelFunc, conn *twoparty.Connection) {
	defer p.Close()
	p.conn = conn

	p.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := p.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(input, " ")
		switch cmd {
		case "send", "s":
			p.cmdSend(ctx, strings.TrimSpace(arg))
		case "recv", "r":
			p.cmdRecv(ctx)
		case "watch":
			p.cmdWatch(ctx)
		case "shutdown":
			p.cmdShutdown(ctx)
		case "status":
			p.cmdStatus()
		case "help", "h", "?":
			p.printHelp()
		case "quit", "exit", "q":
			fmt.Fprintln(p.rl.Stdout(), "Exiting...")
			cancel()
			return
		default:
			fmt.Fprintf(p.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (p *Peer) printHelp() {
	fmt.Fprintln(p.rl.Stdout(), `
Commands:
  send <json>   Send a JSON value as a message
  recv          Wait for the next message
  watch         Print every incoming message as it arrives
  shutdown      Flush pending sends and end the outgoing stream
  status        Show connection status
  help          Show this help
  quit          Exit`)
}

func (p *Peer) cmdSend(ctx context.Context, arg string) {
	v, err := ParseValue(arg)
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}

	out := p.conn.NewOutgoingMessage(0)
	body, err := out.Body()
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}
	if err := body.Set(v); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if _, err := out.Send().Wait(ctx); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Send failed: %v\n", err)
		return
	}
	p.mu.Lock()
	p.sent++
	p.mu.Unlock()
	fmt.Fprintf(p.rl.Stdout(), "Sent %d words\n", out.SizeInWords())
}

// nextMessage returns the outstanding receive, starting one if needed.
// An interrupted wait leaves the receive pending for the next command.
func (p *Peer) nextMessage() *async.Future[*twoparty.IncomingMessage] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		p.pending = p.conn.ReceiveIncomingMessage()
	}
	return p.pending
}

func (p *Peer) consumed() {
	p.mu.Lock()
	p.pending = nil
	p.mu.Unlock()
}

func (p *Peer) cmdRecv(ctx context.Context) {
	p.mu.Lock()
	watching := p.watch
	p.mu.Unlock()
	if watching {
		fmt.Fprintln(p.rl.Stdout(), "Messages are being watched")
		return
	}

	in, err := p.nextMessage().Wait(ctx)
	if ctx.Err() != nil {
		return
	}
	p.consumed()
	p.printIncoming(in, err)
}

func (p *Peer) cmdWatch(ctx context.Context) {
	p.mu.Lock()
	if p.watch {
		p.mu.Unlock()
		fmt.Fprintln(p.rl.Stdout(), "Already watching")
		return
	}
	p.watch = true
	p.mu.Unlock()

	go func() {
		for {
			in, err := p.nextMessage().Wait(ctx)
			if ctx.Err() != nil {
				return
			}
			p.consumed()
			p.printIncoming(in, err)
			if in == nil || err != nil {
				return
			}
		}
	}()
	fmt.Fprintln(p.rl.Stdout(), "Watching incoming messages")
}

func (p *Peer) printIncoming(in *twoparty.IncomingMessage, err error) {
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Receive failed: %v\n", err)
		return
	}
	if in == nil {
		fmt.Fprintln(p.rl.Stdout(), "Peer ended the stream")
		return
	}
	p.mu.Lock()
	p.recv++
	p.mu.Unlock()

	body, err := in.Body()
	if err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Malformed message: %v\n", err)
		return
	}
	fmt.Fprintf(p.rl.Stdout(), "<- %s\n", FormatBody(body))
}

func (p *Peer) cmdShutdown(ctx context.Context) {
	if _, err := p.conn.Shutdown().Wait(ctx); err != nil {
		fmt.Fprintf(p.rl.Stdout(), "Shutdown failed: %v\n", err)
		return
	}
	fmt.Fprintln(p.rl.Stdout(), "Outgoing stream closed")
}

func (p *Peer) cmdStatus() {
	p.mu.Lock()
	sent, recv := p.sent, p.recv
	p.mu.Unlock()

	fmt.Fprintf(p.rl.Stdout(), "Connection: %s\n", p.conn.ID())
	fmt.Fprintf(p.rl.Stdout(), "  Side:  %s (peer %s)\n", p.conn.LocalSide(), p.conn.PeerVatID())
	fmt.Fprintf(p.rl.Stdout(), "  State: %s\n", p.conn.State())
	fmt.Fprintf(p.rl.Stdout(), "  Sent:  %d\n", sent)
	fmt.Fprintf(p.rl.Stdout(), "  Recv:  %d\n", recv)
}

// ParseValue parses a JSON value typed at the prompt. Bare words are taken
// as strings.
func ParseValue(s string) (any, error) {
	if s == "" {
		return nil, fmt.Errorf("usage: send <json>")
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		if strings.ContainsAny(s, "{}[]\"") {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return s, nil
	}
	return v, nil
}

// FormatBody renders a message body in CBOR diagnostic notation.
func FormatBody(body wire.AnyPointer) string {
	diag, err := cbor.Diagnose(body.Raw())
	if err != nil {
		return fmt.Sprintf("<undecodable: %v>", err)
	}
	return diag
}
