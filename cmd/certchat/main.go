// Command certchat is a certificate-authenticated two-party text chat peer.
//
// One peer listens (passive role) and the other dials it (active role). Both
// exchange X.509 certificates issued by the same CA, validate each other, and
// then chat in both directions at once. Typing EXIT on a line of its own, or
// ending input with Ctrl-D, leaves the chat.
//
// Usage:
//
//	certchat [flags]                        listen on the configured port
//	certchat [flags] <listen-port>          listen on listen-port
//	certchat [flags] <host> <port>          dial host:port
//
// Flags:
//
//	-config string        Configuration file path (default ~/.certchat/config.yaml)
//	-account string       Account name; the certificate common name
//	-passphrase string    Keystore passphrase (or CERTCHAT_PASSPHRASE; prompted if unset)
//	-keystore-dir string  Keystore directory (default ~/.certchat/keystore)
//	-ca-dir string        CA directory holding ca.pem and optionally ca.key (default ~/.certchat/ca)
//	-state-dir string     Directory for the known-peer ledger (default ~/.certchat)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write a CBOR protocol capture to this file
//	-advertise            Announce the listening peer over mDNS
//	-discover string      Find the named account over mDNS and dial it
//	-interface string     Network interface for mDNS (default all)
//	-version              Print the version and exit
//
// Exit status is 0 after EXIT or end of input, 2 when either side rejects a
// certificate, and 1 for any other failure.
//
// Examples:
//
//	# Issue identities first (see certchat-keygen), then on host A:
//	certchat -account alice 9000
//
//	# On host B:
//	certchat -account bob hosta.example 9000
//
//	# Advertise on the LAN and let the other side find us by account
//	certchat -account alice -advertise
//	certchat -account bob -discover alice
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/certchat/certchat-go/pkg/version"
)

// Config holds the peer configuration.
type Config struct {
	ConfigFile  string
	Account     string
	Passphrase  string
	KeystoreDir string
	CADir       string
	StateDir    string
	LogLevel    string
	ProtocolLog string
	Advertise   bool
	Discover    string
	Interface   string

	// Port is the default listen port. Set from the config file only.
	Port string
}

var (
	config      Config
	showVersion bool
)

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&config.Account, "account", "", "Account name (certificate common name)")
	flag.StringVar(&config.Passphrase, "passphrase", "", "Keystore passphrase (or "+passphraseEnv+")")
	flag.StringVar(&config.KeystoreDir, "keystore-dir", "", "Keystore directory")
	flag.StringVar(&config.CADir, "ca-dir", "", "CA directory (ca.pem, ca.key)")
	flag.StringVar(&config.StateDir, "state-dir", "", "Directory for the known-peer ledger")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Write a CBOR protocol capture to this file")
	flag.BoolVar(&config.Advertise, "advertise", false, "Announce the listening peer over mDNS")
	flag.StringVar(&config.Discover, "discover", "", "Find this account over mDNS and dial it")
	flag.StringVar(&config.Interface, "interface", "", "Network interface for mDNS (default all)")
	flag.BoolVar(&showVersion, "version", false, "Print the version and exit")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println(version.String("certchat"))
		return
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if err := loadConfig(&config, explicit); err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	setupLogging(config.LogLevel)

	err := run(context.Background(), &config, flag.Args())
	if err != nil {
		log.Printf("Error: %v", err)
	}
	os.Exit(exitCode(err))
}

func setupLogging(level string) {
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	switch level {
	case "debug":
		log.SetFlags(log.Ltime | log.Lmicroseconds | log.Lshortfile)
	case "warn", "error":
		log.SetFlags(log.Ltime)
	}
}
