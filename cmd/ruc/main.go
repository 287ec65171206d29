// main.go - CLI front end for the Random Universe Cipher library. The
// cipher core lives in the root package; this is the external collaborator
// the spec (§6) delegates CLI/file-I/O concerns to.
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	ruc "github.com/Redeaux-Corporation/ruc"
)

// Exit codes, per spec §6.
const (
	exitOK               = 0
	exitIOError          = 2
	exitAuthFailure      = 3
	exitMalformedFrame   = 4
	exitUnsupportedLevel = 5
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(exitOK)
	}

	switch os.Args[1] {
	case "derive-key":
		cmdDeriveKey(os.Args[2:])
	case "encrypt":
		cmdEncrypt(os.Args[2:])
	case "decrypt":
		cmdDecrypt(os.Args[2:])
	case "encrypt-password":
		cmdEncryptPassword(os.Args[2:])
	case "decrypt-password":
		cmdDecryptPassword(os.Args[2:])
	case "summary":
		printSummary()
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(exitIOError)
	}
}

func cmdDeriveKey(args []string) {
	fs := flag.NewFlagSet("derive-key", flag.ExitOnError)
	password := fs.String("password", "", "password to derive from (required)")
	level := fs.String("level", "interactive", "interactive | moderate | sensitive")
	fs.Parse(args)

	lvl, err := parseLevel(*level)
	if err != nil {
		log.Printf("derive-key: %v", err)
		os.Exit(exitUnsupportedLevel)
	}

	key, salt, err := ruc.DeriveKey(*password, nil, lvl)
	if err != nil {
		log.Printf("derive-key: %v", err)
		os.Exit(exitIOError)
	}

	fmt.Printf("salt: %s\n", hex.EncodeToString(salt[:]))
	fmt.Printf("key:  %s\n", hex.EncodeToString(key[:]))
}

func cmdEncrypt(args []string) {
	fs := flag.NewFlagSet("encrypt", flag.ExitOnError)
	keyHex := fs.String("key", "", "64-byte master key, hex-encoded (required)")
	ad := fs.Bool("aead", true, "use the AEAD frame instead of bare CTR")
	fs.Parse(args)

	key, err := decodeHex(*keyHex)
	if err != nil {
		log.Printf("encrypt: %v", err)
		os.Exit(exitIOError)
	}

	plaintext, err := readAll(os.Stdin)
	if err != nil {
		log.Printf("encrypt: %v", err)
		os.Exit(exitIOError)
	}

	var out []byte
	if *ad {
		out, err = ruc.AEADEncrypt(plaintext, key, nil, nil)
	} else {
		out, err = ruc.EncryptCTR(plaintext, key, nil)
	}
	if err != nil {
		log.Printf("encrypt: %v", err)
		os.Exit(exitIOError)
	}

	os.Stdout.Write(out)
}

func cmdDecrypt(args []string) {
	fs := flag.NewFlagSet("decrypt", flag.ExitOnError)
	keyHex := fs.String("key", "", "64-byte master key, hex-encoded (required)")
	ad := fs.Bool("aead", true, "the input is an AEAD frame instead of bare CTR")
	fs.Parse(args)

	key, err := decodeHex(*keyHex)
	if err != nil {
		log.Printf("decrypt: %v", err)
		os.Exit(exitIOError)
	}

	frame, err := readAll(os.Stdin)
	if err != nil {
		log.Printf("decrypt: %v", err)
		os.Exit(exitIOError)
	}

	var out []byte
	if *ad {
		out, err = ruc.AEADDecrypt(frame, key, nil)
	} else {
		out, err = ruc.DecryptCTR(frame, key)
	}
	exitOnDecryptError(err)

	os.Stdout.Write(out)
}

func cmdEncryptPassword(args []string) {
	fs := flag.NewFlagSet("encrypt-password", flag.ExitOnError)
	password := fs.String("password", "", "password (required)")
	level := fs.String("level", "interactive", "interactive | moderate | sensitive")
	fs.Parse(args)

	lvl, err := parseLevel(*level)
	if err != nil {
		log.Printf("encrypt-password: %v", err)
		os.Exit(exitUnsupportedLevel)
	}

	plaintext, err := readAll(os.Stdin)
	if err != nil {
		log.Printf("encrypt-password: %v", err)
		os.Exit(exitIOError)
	}

	out, err := ruc.EncryptWithPassword(plaintext, *password, lvl)
	if err != nil {
		log.Printf("encrypt-password: %v", err)
		os.Exit(exitIOError)
	}

	os.Stdout.Write(out)
}

func cmdDecryptPassword(args []string) {
	fs := flag.NewFlagSet("decrypt-password", flag.ExitOnError)
	password := fs.String("password", "", "password (required)")
	level := fs.String("level", "interactive", "interactive | moderate | sensitive")
	fs.Parse(args)

	lvl, err := parseLevel(*level)
	if err != nil {
		log.Printf("decrypt-password: %v", err)
		os.Exit(exitUnsupportedLevel)
	}

	frame, err := readAll(os.Stdin)
	if err != nil {
		log.Printf("decrypt-password: %v", err)
		os.Exit(exitIOError)
	}

	out, err := ruc.DecryptWithPassword(frame, *password, lvl)
	exitOnDecryptError(err)

	os.Stdout.Write(out)
}

func exitOnDecryptError(err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, ruc.ErrAuthentication):
		log.Printf("decrypt: %v", err)
		os.Exit(exitAuthFailure)
	case errors.Is(err, ruc.ErrMalformedFrame), errors.Is(err, ruc.ErrPadding):
		log.Printf("decrypt: %v", err)
		os.Exit(exitMalformedFrame)
	default:
		log.Printf("decrypt: %v", err)
		os.Exit(exitIOError)
	}
}

func parseLevel(s string) (ruc.KDFLevel, error) {
	switch s {
	case "interactive":
		return ruc.KDFInteractive, nil
	case "moderate":
		return ruc.KDFModerate, nil
	case "sensitive":
		return ruc.KDFSensitive, nil
	default:
		return 0, fmt.Errorf("unsupported KDF level %q", s)
	}
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("missing required -key flag")
	}
	return hex.DecodeString(s)
}

func readAll(f *os.File) ([]byte, error) {
	out, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func printSummary() {
	fmt.Println(`
Random Universe Cipher (RUC)
  block size:       32 bytes
  register file:    7 x 512-bit
  rounds:           24
  modes:            CTR, AEAD (encrypt-then-MAC, HMAC-SHA256)
  password KDF:     Argon2id (fallback: iterated SHAKE256)
  parallel pipeline: yes (adaptive chunking, worker pool)
`)
}

func printHelp() {
	fmt.Println(`
ruc - Random Universe Cipher CLI

Usage:
  ruc <command> [flags]

Commands:
  derive-key          derive a master key from a password
  encrypt             encrypt stdin, write frame to stdout
  decrypt             decrypt stdin frame, write plaintext to stdout
  encrypt-password    derive a key from a password and encrypt
  decrypt-password    decrypt a password-framed ciphertext
  summary             print cipher parameters
  help                show this message

Exit codes: 0 ok, 2 I/O error, 3 authentication failure,
4 malformed frame, 5 unsupported KDF level.
`)
}

