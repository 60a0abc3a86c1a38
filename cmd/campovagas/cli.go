package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "signup":
		return runSignUp(args[2:])
	case "signin":
		return runSignIn(args[2:])
	case "signout":
		return runSignOut(args[2:])
	case "whoami":
		return runWhoAmI(args[2:])
	case "refresh":
		return runRefresh(args[2:])
	case "confirm":
		return runConfirm(args[2:])
	case "open":
		return runOpen(args[2:])
	case "areas":
		return runAreas(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "campovagas"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s signup --email <email> --password <password> --role <professional|employer>\n", name)
	fmt.Fprintf(os.Stderr, "  %s signin --email <email> --password <password>\n", name)
	fmt.Fprintf(os.Stderr, "  %s signout\n", name)
	fmt.Fprintf(os.Stderr, "  %s whoami\n", name)
	fmt.Fprintf(os.Stderr, "  %s refresh\n", name)
	fmt.Fprintf(os.Stderr, "  %s confirm --token <token>\n", name)
	fmt.Fprintf(os.Stderr, "  %s open <area>\n", name)
	fmt.Fprintf(os.Stderr, "  %s areas\n", name)
}
