package main

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/chzyer/readline"

	"github.com/certchat/certchat-go/pkg/cert"
	"github.com/certchat/certchat-go/pkg/discovery"
	"github.com/certchat/certchat-go/pkg/handshake"
	clog "github.com/certchat/certchat-go/pkg/log"
	"github.com/certchat/certchat-go/pkg/persistence"
	"github.com/certchat/certchat-go/pkg/session"
	"github.com/certchat/certchat-go/pkg/transport"
)

// run performs one chat session and returns its outcome for exitCode.
func run(ctx context.Context, cfg *Config, args []string) error {
	inv, err := resolveInvocation(ctx, cfg, args)
	if err != nil {
		return err
	}
	if len(inv.Ignored) > 0 {
		log.Printf("Warning: ignoring extra arguments: %v", inv.Ignored)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       session.ExitCommand,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	log.SetOutput(rl.Stderr())
	defer log.SetOutput(os.Stderr)

	identity, err := loadIdentity(cfg, rl)
	if err != nil {
		return err
	}
	log.Printf("Account: %s (certificate expires %s)", identity.Account(), identity.ExpiresAt().Format(time.DateOnly))

	debug := componentLogger(cfg.LogLevel, rl.Stderr())

	plog, closeLog, err := openProtocolLog(cfg.ProtocolLog, debug)
	if err != nil {
		return err
	}
	defer closeLog()

	conn, err := establish(ctx, cfg, inv, identity)
	if err != nil {
		return err
	}

	sess := session.New(conn, inv.Role, plog)
	defer sess.Close()

	coord := handshake.NewCoordinator(sess, handshake.Config{
		Identity: identity,
		Logger:   debug,
		OnStateChange: func(_, newState handshake.State) {
			if newState == handshake.StateRejected {
				log.Printf("Rejected the peer certificate")
			}
		},
		OnPeerVerdict: func(accepted bool) {
			if !accepted {
				log.Printf("Peer rejected our certificate")
			}
		},
	})
	peer, err := coord.Run()
	if err != nil {
		return err
	}
	log.Printf("Authenticated peer %s (%s)", peer.Subject.CommonName, cert.Fingerprint(peer))
	recordPeer(cfg.StateDir, peer)

	queue := session.NewQueue()
	pump := session.NewPump(sess, queue, &consoleObserver{out: rl.Stdout()}, session.PumpConfig{Logger: debug})

	pumpDone := make(chan error, 1)
	go func() { pumpDone <- pump.Run(ctx) }()

	loopDone := make(chan error, 1)
	loop := &session.Loop{
		Lines: rl,
		Queue: queue,
		OnRejected: func(_ string, err error) {
			log.Printf("Line not sent: %v", err)
		},
	}
	go func() { loopDone <- loop.Run() }()

	select {
	case err := <-pumpDone:
		return err
	case loopErr := <-loopDone:
		queue.Close()
		if err := <-pumpDone; err != nil {
			return err
		}
		return loopErr
	}
}

// resolveInvocation turns arguments, or an mDNS lookup, into a role and address.
func resolveInvocation(ctx context.Context, cfg *Config, args []string) (*invocation, error) {
	if cfg.Discover == "" {
		return parseArgs(args, cfg.Port)
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("%w: -discover takes no positional arguments", errUsage)
	}

	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: cfg.Interface})
	log.Printf("Looking for %s on the local network...", cfg.Discover)
	svc, err := browser.FindPeer(ctx, cfg.Discover)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", cfg.Discover, err)
	}
	log.Printf("Found %s at %s (fingerprint %s...)", svc.Account, svc.DialAddress(), svc.FingerprintPrefix)
	return &invocation{Role: session.Active, Address: svc.DialAddress()}, nil
}

func loadIdentity(cfg *Config, rl *readline.Instance) (*cert.Identity, error) {
	passphrase := []byte(cfg.Passphrase)
	if len(passphrase) == 0 {
		var err error
		passphrase, err = rl.ReadPassword("Keystore passphrase: ")
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
	}

	ks := &cert.Keystore{Dir: cfg.KeystoreDir}
	identity, created, err := cert.LoadOrCreateIdentity(ks, cfg.Account, passphrase, cert.CADir(cfg.CADir))
	if err != nil {
		return nil, fmt.Errorf("load identity for %s: %w", cfg.Account, err)
	}
	if created {
		log.Printf("Issued new identity for %s, saved to %s", cfg.Account, ks.Path(cfg.Account))
	}
	return identity, nil
}

// componentLogger returns the slog logger handed to library components, or
// nil below debug level.
func componentLogger(level string, w io.Writer) *slog.Logger {
	if level != "debug" {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openProtocolLog builds the protocol event sink. The capture file and the
// debug adapter are both optional.
func openProtocolLog(path string, debug *slog.Logger) (clog.Logger, func(), error) {
	var sinks []clog.Logger
	closeFn := func() {}

	if path != "" {
		fl, err := clog.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = func() { _ = fl.Close() }
		log.Printf("Protocol log: %s", path)
	}
	if debug != nil {
		sinks = append(sinks, clog.NewSlogAdapter(debug))
	}

	switch len(sinks) {
	case 0:
		return clog.NoopLogger{}, closeFn, nil
	case 1:
		return sinks[0], closeFn, nil
	default:
		return clog.NewMultiLogger(sinks...), closeFn, nil
	}
}

// establish opens the connection for the requested role.
func establish(ctx context.Context, cfg *Config, inv *invocation, identity *cert.Identity) (net.Conn, error) {
	if inv.Role == session.Active {
		log.Printf("Connecting to %s...", inv.Address)
		conn, err := transport.Connect(ctx, inv.Address)
		if err != nil {
			return nil, err
		}
		log.Printf("Connected to %s", conn.RemoteAddr())
		return conn, nil
	}

	acceptor, err := transport.Listen(inv.Address)
	if err != nil {
		return nil, err
	}
	defer acceptor.Close()
	log.Printf("Listening on %s", acceptor.Addr())

	if cfg.Advertise {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Interface: cfg.Interface})
		info := &discovery.PeerInfo{
			Account:     identity.Account(),
			Fingerprint: cert.Fingerprint(identity.Certificate),
			Port:        uint16(acceptor.Addr().(*net.TCPAddr).Port),
		}
		if err := adv.Advertise(info); err != nil {
			log.Printf("Warning: mDNS advertising failed: %v", err)
		} else {
			defer adv.Stop()
			log.Printf("Advertising %s as %s", discovery.InstanceName(info.Account), discovery.ServiceType)
		}
	}

	log.Println("Waiting for peer to connect...")
	conn, err := acceptor.Accept(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("Peer connected from %s", conn.RemoteAddr())
	return conn, nil
}

// recordPeer notes the authenticated peer in the ledger. Failures are
// reported and otherwise ignored.
func recordPeer(stateDir string, peer *x509.Certificate) {
	store := persistence.NewPeerStoreInDir(stateDir)
	known, err := store.RecordAuthenticated(peer, time.Now())
	if err != nil {
		log.Printf("Warning: failed to update %s: %v", store.Path(), err)
		return
	}
	if known.Sessions == 1 {
		log.Printf("First session with %s", known.Subject)
	} else {
		log.Printf("Known peer %s, session %d (first seen %s)", known.Subject, known.Sessions, known.FirstSeen.Format(time.DateOnly))
	}
}

// consoleObserver prints inbound traffic.
type consoleObserver struct {
	out io.Writer
}

func (o *consoleObserver) MessageReceived(text string) {
	fmt.Fprintf(o.out, "Received:\n%s\n", text)
}

func (o *consoleObserver) ChannelClosed() {
	fmt.Fprintln(o.out, "Peer closed the connection")
}

var _ session.Observer = (*consoleObserver)(nil)
