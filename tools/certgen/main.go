// Package main writes a development CA and a server certificate for the
// memedesk warmup relay into a certs directory. An existing CA in that
// directory is reused so clients that already trust it keep working.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/memedesk/internal/certgen"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("certgen", flag.ContinueOnError)
	dir := flags.String("dir", "certs", "output directory")
	hosts := flags.String("hosts", "localhost,127.0.0.1", "comma-separated server names")
	if err := flags.Parse(args); err != nil {
		return err
	}

	var names []string
	for _, h := range strings.Split(*hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			names = append(names, h)
		}
	}

	caCertPath := filepath.Join(*dir, "ca.crt")
	caKeyPath := filepath.Join(*dir, "ca.key")
	caCert, caKey, err := certgen.LoadCACredentials(caCertPath, caKeyPath)
	switch {
	case err == nil:
		fmt.Fprintf(out, "reusing CA %s\n", caCertPath)
	case errors.Is(err, fs.ErrNotExist):
		ca, err := certgen.GenerateCA("memedesk dev CA")
		if err != nil {
			return err
		}
		if err := ca.Write(*dir, "ca"); err != nil {
			return err
		}
		if caCert, caKey, err = certgen.ParseCA(ca); err != nil {
			return err
		}
		fmt.Fprintf(out, "created CA %s\n", caCertPath)
	default:
		return err
	}

	server, err := certgen.GenerateServerCertificate(names, caCert, caKey)
	if err != nil {
		return err
	}
	if err := server.Write(*dir, "server"); err != nil {
		return err
	}
	fmt.Fprintf(out, "created server certificate for %s in %s\n", strings.Join(names, ", "), *dir)
	return nil
}
