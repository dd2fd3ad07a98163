package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"Tripboard/internal/app"
)

// importShared applies the snapshot from the launch link's share fragment, if any.
// It replaces the whole trip, so it asks first unless yes is set.
func importShared(ctx context.Context, a *app.App, in io.Reader, out io.Writer, yes bool) error {
	snap, ok, err := a.PendingShare()
	if err != nil {
		fmt.Fprintf(out, "The shared trip in this link cannot be read: %v\nNothing was changed.\n", err)
		return err
	}
	if !ok {
		return nil
	}
	svc := a.Service()
	if !yes && !confirm(in, out, len(svc.Tasks()), len(snap.Tasks)) {
		fmt.Fprintln(out, "Shared trip not applied.")
		return nil
	}
	if err := svc.ReplaceAll(ctx, snap); err != nil {
		return err
	}
	fmt.Fprintf(out, "Applied shared trip with %d tasks.\n", len(snap.Tasks))
	return nil
}

func confirm(in io.Reader, out io.Writer, current, incoming int) bool {
	fmt.Fprintf(out, "Replace all %d tasks of this trip with %d shared tasks? [y/N] ", current, incoming)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
