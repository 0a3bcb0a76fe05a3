package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taxiledger/internal/client/services"
	"github.com/dmitrijs2005/taxiledger/internal/common"
)

// Login reads an access token from the terminal and starts a session.
// A first sync runs right away when the remote is reachable.
func (a *App) Login(ctx context.Context) error {
	token, err := GetSecret("Enter access token", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(token)

	claims, err := a.auth.Login(ctx, string(token))
	if err != nil {
		return fmt.Errorf("login unsuccessful: %w", err)
	}
	a.claims = claims
	fmt.Fprintln(a.out, "Login successful:", a.claimsLabel())

	res, err := a.scheduler.Trigger(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(a.out, "Synced: %d pushed, %d pulled\n", res.Pushed, res.Pulled)
	case errors.Is(err, common.ErrOffline):
		fmt.Fprintln(a.out, "Remote unavailable, working offline")
	default:
		a.log.Warn(ctx, "sync after login failed", "error", err)
	}
	return nil
}

// Logout ends the session. Local records are kept.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.claims = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Sync runs one cycle now.
func (a *App) Sync(ctx context.Context) error {
	res, err := a.scheduler.Trigger(ctx)
	switch {
	case errors.Is(err, common.ErrUnauthorized):
		a.claims = nil
		return errNotLoggedIn
	case err != nil:
		return err
	}
	fmt.Fprintf(a.out, "Synced: %d pushed, %d pulled\n", res.Pushed, res.Pulled)
	return nil
}

// Status prints the session, connectivity and the last sync.
func (a *App) Status(ctx context.Context) error {
	if a.claims != nil {
		fmt.Fprintln(a.out, "User:", a.claimsLabel())
	} else {
		fmt.Fprintln(a.out, "User: not logged in")
	}

	online, _ := a.scheduler.CheckOnline(ctx)
	st := a.scheduler.Status()
	fmt.Fprintln(a.out, "Remote:", onlineLabel(online))
	fmt.Fprintln(a.out, "Sync:", st.State)

	last, err := a.settings.LastSyncAt(ctx)
	if err != nil {
		return err
	}
	if last == nil {
		fmt.Fprintln(a.out, "Last sync: never")
	} else {
		fmt.Fprintln(a.out, "Last sync:", last.In(a.loc).Format(time.DateTime))
	}
	if st.State == services.StateError {
		fmt.Fprintln(a.out, "Last error:", st.LastError)
	}
	return nil
}

func (a *App) claimsLabel() string {
	if a.claims.Email != "" {
		return a.claims.Email
	}
	return a.claims.UserID()
}

func onlineLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
