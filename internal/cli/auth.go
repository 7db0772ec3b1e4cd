package cli

import (
	"context"
	"os"
)

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	s, err := a.router.SignIn(ctx, email, string(pw))
	if err != nil {
		printlnFn("Login failed:", err)
		return err
	}
	a.session = s
	printlnFn("Welcome,", email)
	return nil
}

func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Email", os.Stdout)
	if err != nil {
		return err
	}
	pw, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	s, err := a.router.SignUp(ctx, email, string(pw))
	if err != nil {
		printlnFn("Registration failed:", err)
		return err
	}
	a.session = s
	printlnFn("Account created for", email)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.router.SignOut(ctx); err != nil {
		printlnFn("Logout failed:", err)
		return err
	}
	a.session = nil
	printlnFn("Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	s, err := a.router.GetSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		printlnFn("Not logged in")
		return nil
	}
	printlnFn("User:", s.User["email"], "id:", s.User.ID())
	if last, ok := s.User["last_login"]; ok {
		printlnFn("Last login:", last)
	}
	return nil
}
