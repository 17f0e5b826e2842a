// Command galleryctl administers the gallery and acts as its photobooth client.
//
// Usage:
//
//	galleryctl user create --email E --name N --password P
//	galleryctl token generate --email E --name N [--abilities upload,delete] [--expires 720h]
//	galleryctl token list (--email E | --all)
//	galleryctl token revoke (--id ID --email E | --email E --all)
//	galleryctl migrate
//	galleryctl upload --endpoint URL --token T --file PATH [--timeout 30s]
//	galleryctl watch --base-url URL [--interval 2s]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var errUsage = errors.New("usage")

const usage = `usage: galleryctl <command> [flags]

commands:
  user create      create a user
  token generate   issue an API token and print it once
  token list       list tokens for a user or every user
  token revoke     revoke one token or every token of a user
  migrate          apply database migrations
  upload           upload an image to the gallery
  watch            print gallery changes as they happen
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "galleryctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "user":
		if len(args) < 2 || args[1] != "create" {
			return errUsage
		}
		return userCreate(ctx, args[2:], stdout, stderr)
	case "token":
		if len(args) < 2 {
			return errUsage
		}
		switch args[1] {
		case "generate":
			return tokenGenerate(ctx, args[2:], stdout, stderr)
		case "list":
			return tokenList(ctx, args[2:], stdout, stderr)
		case "revoke":
			return tokenRevoke(ctx, args[2:], stdout, stderr)
		}
		return errUsage
	case "migrate":
		return migrate(ctx, args[1:], stdout, stderr)
	case "upload":
		return upload(ctx, args[1:], stdout, stderr)
	case "watch":
		return watch(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	}
	return errUsage
}
