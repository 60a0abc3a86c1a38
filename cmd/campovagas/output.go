package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agrovagas/platform/internal/core/domain"
)

func writeJSON(v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(payload); err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout)
	return err
}

var kindMessages = map[domain.Kind]string{
	domain.KindInvalidCredentials:     "invalid email or password",
	domain.KindUnconfirmedIdentity:    "confirm your email address before signing in",
	domain.KindEmailAlreadyRegistered: "this email is already registered",
	domain.KindNoRoleAssigned:         "this account has no profile type assigned; contact support",
	domain.KindRoleResolution:         "could not determine the account's profile type; try again later",
	domain.KindPartialSignup:          "the account was created but signup did not finish",
}

func printError(err error) {
	kind := domain.KindOf(err)
	if msg, ok := kindMessages[kind]; ok {
		fmt.Fprintf(os.Stderr, "%s (%s)\n", msg, kind)
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
}
