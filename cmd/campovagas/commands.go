package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/agrovagas/platform/internal/core/domain"
	"github.com/agrovagas/platform/internal/core/session"
)

type stateOutput struct {
	SignedIn  bool         `json:"signed_in"`
	Resolving bool         `json:"resolving"`
	User      *domain.User `json:"user,omitempty"`
	Error     string       `json:"error,omitempty"`
	Kind      domain.Kind  `json:"kind,omitempty"`
}

func stateOf(st session.State) stateOutput {
	out := stateOutput{SignedIn: st.User != nil, Resolving: st.Resolving, User: st.User}
	if st.Err != nil {
		out.Error = st.Err.Error()
		out.Kind = domain.KindOf(st.Err)
	}
	return out
}

func runSignUp(args []string) int {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var email, password, role string
	fs.StringVar(&email, "email", "", "email address")
	fs.StringVar(&password, "password", "", "password (at least 6 characters)")
	fs.StringVar(&role, "role", "", "professional or employer")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if email == "" || password == "" || role == "" {
		fmt.Fprintln(os.Stderr, "signup requires --email, --password and --role")
		return 1
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		printError(err)
		return 1
	}

	return withApp(func(ctx context.Context, a *app) error {
		outcome, err := a.boot.SignUp(ctx, email, password, parsed)
		var partial *domain.PartialSignupError
		if errors.As(err, &partial) {
			fmt.Fprintf(os.Stderr, "identity %s created; %s step failed: %v\n", partial.Identity.ID, partial.Step, partial.Cause)
		}
		if outcome == session.SignupFailed && err != nil {
			return err
		}

		if werr := writeJSON(map[string]any{
			"outcome": outcome.String(),
			"state":   stateOf(a.boot.Snapshot()),
		}); werr != nil {
			return werr
		}
		return err
	})
}

func runSignIn(args []string) int {
	fs := flag.NewFlagSet("signin", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var email, password string
	fs.StringVar(&email, "email", "", "email address")
	fs.StringVar(&password, "password", "", "password")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	return withApp(func(ctx context.Context, a *app) error {
		if _, err := a.boot.SignIn(ctx, email, password); err != nil {
			return err
		}
		return writeJSON(stateOf(a.boot.Snapshot()))
	})
}

func runSignOut(args []string) int {
	fs := flag.NewFlagSet("signout", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	return withApp(func(ctx context.Context, a *app) error {
		if err := a.boot.SignOut(ctx); err != nil {
			return err
		}
		return writeJSON(stateOf(a.boot.Snapshot()))
	})
}

func runWhoAmI(args []string) int {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	return withApp(func(ctx context.Context, a *app) error {
		return writeJSON(stateOf(a.boot.Snapshot()))
	})
}

func runRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	return withApp(func(ctx context.Context, a *app) error {
		if _, err := a.client.Refresh(ctx); err != nil {
			return err
		}
		st, err := a.boot.WaitResolved(ctx)
		if err != nil {
			return err
		}
		return writeJSON(stateOf(st))
	})
}

func runConfirm(args []string) int {
	fs := flag.NewFlagSet("confirm", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var token string
	fs.StringVar(&token, "token", "", "confirmation token")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if token == "" {
		fmt.Fprintln(os.Stderr, "confirm requires --token")
		return 1
	}

	return withApp(func(ctx context.Context, a *app) error {
		identity, err := a.client.Confirm(ctx, token)
		if err != nil {
			return err
		}
		return writeJSON(map[string]any{"confirmed": true, "email": identity.Email})
	})
}

type openOutput struct {
	Area     string           `json:"area"`
	State    domain.GateState `json:"state"`
	Redirect string           `json:"redirect,omitempty"`
}

func runOpen(args []string) int {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "open requires exactly one area name")
		return 1
	}
	area, ok := domain.FindArea(fs.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown area %q; run areas for the list\n", fs.Arg(0))
		return 1
	}

	return withApp(func(ctx context.Context, a *app) error {
		st := a.boot.Snapshot()
		decision := domain.Evaluate(st.Resolving, st.User, area)

		out := openOutput{Area: area.Name, State: decision.State()}
		switch decision {
		case domain.DecisionRedirectEntry:
			out.Redirect = a.cfg.Gate.EntryPath
		case domain.DecisionRedirectNeutral:
			out.Redirect = a.cfg.Gate.NeutralPath
		}
		return writeJSON(out)
	})
}

func runAreas(args []string) int {
	fs := flag.NewFlagSet("areas", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := writeJSON(domain.Areas); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
