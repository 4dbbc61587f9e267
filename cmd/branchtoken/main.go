// Package main выпускает токен доступа для кассового терминала филиала.
//
//	branchtoken -s "$AUTH_SECRET" -branch 3 -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/cafe-loyalty/internal/middleware"
)

type options struct {
	Secret   string        `env:"AUTH_SECRET"`
	BranchID int64         `env:"BRANCH_ID"`
	TTL      time.Duration `env:"TOKEN_TTL"`
}

func main() {
	var opts options
	flag.StringVar(&opts.Secret, "s", "", "secret for signing access tokens")
	flag.Int64Var(&opts.BranchID, "branch", 0, "branch identifier")
	flag.DurationVar(&opts.TTL, "ttl", 30*24*time.Hour, "token lifetime")
	flag.Parse()

	if err := env.Parse(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "parse env: %v\n", err)
		os.Exit(1)
	}

	if opts.Secret == "" || opts.BranchID <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	token, err := middleware.NewAuthMiddleware(opts.Secret).IssueToken(middleware.RoleBranch, opts.BranchID, opts.TTL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
