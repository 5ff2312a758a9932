package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"collectdash/internal/app"
	"collectdash/internal/auth"
	"collectdash/pkg/contracts"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password for the auth config and exit")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		info := contracts.GetVersionInfo()
		fmt.Printf("%s (commit %s, built %s, %s %s/%s)\n",
			contracts.GetVersionString(), info.GitCommit, info.BuildTime, info.GoVersion, info.OS, info.Architecture)
		return
	}

	if *hashPassword != "" {
		h, err := auth.HashPassword(*hashPassword)
		if err != nil {
			slog.Error("Failed to hash password", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
