// Command sign creates Ed25519 key pairs and signs server challenges by hand,
// for use with browser sessions and curl.
package main

import (
	"bufio"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/debemdeboas/microsites/internal/auth"
)

const (
	privateKeyFile = "privkey.pem"
	publicKeyFile  = "pubkey.pem"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

var keyPath string

// signLoop signs each base64 challenge read from in until EOF or "quit".
func signLoop(in io.Reader, out io.Writer, key ed25519.PrivateKey) error {
	fmt.Fprintln(out, "Enter challenges one by one. Type 'quit' to exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("Enter challenge (base64): "))
		if !scanner.Scan() {
			break
		}

		challengeB64 := strings.TrimSpace(scanner.Text())
		if challengeB64 == "" {
			continue
		}
		if challengeB64 == "quit" {
			break
		}

		challenge, err := base64.StdEncoding.DecodeString(challengeB64)
		if err != nil {
			fmt.Fprintln(out, outputStyle.Render("Error: invalid base64"))
			continue
		}
		sig := base64.StdEncoding.EncodeToString(ed25519.Sign(key, challenge))
		fmt.Fprintln(out, outputStyle.Render("Signature: "+sig))
	}
	return scanner.Err()
}

// writeKeyPair writes a new key pair into dir and returns the public key PEM.
func writeKeyPair(dir string, force bool) ([]byte, error) {
	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)
	if !force {
		for _, p := range []string{privPath, pubPath} {
			if _, err := os.Stat(p); err == nil {
				return nil, fmt.Errorf("%s already exists, pass --force to overwrite", p)
			} else if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
	}

	pub, priv, err := auth.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		return nil, err
	}
	return pub, nil
}

// keysSnippet is the auth.keys entry that registers pub for principal.
func keysSnippet(principal string, pub []byte) string {
	var b strings.Builder
	b.WriteString("auth:\n  keys:\n    " + principal + ": |\n")
	for _, line := range strings.Split(strings.TrimRight(string(pub), "\n"), "\n") {
		b.WriteString("      " + line + "\n")
	}
	return b.String()
}

var rootCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign authentication challenges with an Ed25519 private key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.LoadPrivateKey(keyPath)
		if err != nil {
			return err
		}
		return signLoop(cmd.InOrStdin(), cmd.OutOrStdout(), key)
	},
	SilenceUsage: true,
}

var keygenCmd = &cobra.Command{
	Use:   "keygen [principal]",
	Short: "Generate a key pair and print its config entry",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		force, _ := cmd.Flags().GetBool("force")
		pub, err := writeKeyPair(dir, force)
		if err != nil {
			return err
		}

		principal := "you"
		if len(args) == 1 {
			principal = args[0]
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, outputStyle.Render("Wrote "+filepath.Join(dir, privateKeyFile)+" and "+filepath.Join(dir, publicKeyFile)))
		fmt.Fprint(out, keysSnippet(principal, pub))
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&keyPath, "key", privateKeyFile, "private key file")
	keygenCmd.Flags().String("dir", ".", "directory to write the key pair to")
	keygenCmd.Flags().Bool("force", false, "overwrite existing keys")
	rootCmd.AddCommand(keygenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
