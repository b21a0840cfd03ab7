package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shpitdev/fiofix/pkg/mockportal"
	localio "github.com/shpitdev/fiofix/pkg/pipeline/io/local"
)

func main() {
	addr := defaultString("MOCK_PORTAL_ADDR", ":8080")
	roster := defaultString("MOCK_PORTAL_ROSTER", "data/authors.json")
	email := defaultString("EMAIL", "editor@example.com")
	password := defaultString("PASSWORD", "password")
	charset := defaultString("MOCK_PORTAL_CHARSET", "utf-8")

	fs := flag.NewFlagSet("mock-portal", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&roster, "roster", roster, "Roster JSON used to seed the author table")
	fs.StringVar(&email, "email", email, "Accepted login email")
	fs.StringVar(&password, "password", password, "Accepted login password")
	fs.StringVar(&charset, "charset", charset, "Page charset: utf-8 or windows-1251")
	_ = fs.Parse(os.Args[1:])

	records, err := localio.ReadRosterFile(roster)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load roster: %v\n", err)
		os.Exit(2)
	}
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := mockportal.New(mockportal.Options{
		Email:    email,
		Password: password,
		Charset:  charset,
	}, names)

	_, _ = fmt.Fprintf(os.Stdout, "mock-portal listening on %s (authors=%d charset=%s)\n", addr, len(names), charset)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
