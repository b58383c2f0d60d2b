package cli

// This file contains the profile command for exploring run latencies with
// pprof.

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/simlog"
)

func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}

func parseProfileArgs(in []string) (idArg string, pprofArgs []string) {
	if len(in) == 0 {
		return "0", nil
	}

	// If first arg is "--", use default "0" and rest are pprof args
	if in[0] == "--" {
		return "0", in[1:]
	}

	// A negative index is "-" followed by digits only (e.g. "-1"), anything
	// else starting with "-" is a pprof flag (e.g. "-http=:8080", "-top")
	if len(in[0]) > 1 && in[0][0] == '-' {
		if _, err := strconv.ParseInt(in[0], 10, 64); err != nil {
			return "0", in
		}
	}

	return in[0], removeFirstDashDash(in[1:])
}

func (a *App) profile(ctx *cli.Context) error {
	arg, pprofArgs := parseProfileArgs(ctx.Args().Slice())

	repo, run, err := a.findRun(arg)
	if err != nil {
		return err
	}

	key := history.Completed(run.Name)
	profilePath, err := profileLocation(run.Name)
	if err != nil {
		return err
	}
	if err := a.writeProfile(repo, key, profilePath); err != nil {
		return err
	}

	info, err := os.Stat(profilePath)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "=== Run: %s ===\n", run.Name)
	fmt.Fprintf(a.out, "Profile: %s (%.1f KB)\n", profilePath, float64(info.Size())/1024)

	args := []string{"tool", "pprof"}
	args = append(args, pprofArgs...)
	args = append(args, profilePath)

	cmd := exec.Command("go", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = repo.Path(key)

	return cmd.Run()
}

// profileLocation returns where the profile of a run is exported. Completed run
// directories are never written to, so profiles live in the user cache.
func profileLocation(token string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	dir := filepath.Join(base, AppName, "profiles", token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}
	return filepath.Join(dir, simlog.ProfileFile), nil
}

// writeProfile converts the log of a run into a pprof profile at path.
func (a *App) writeProfile(repo history.Repository, key history.Key, path string) error {
	rc, err := repo.OpenLog(key)
	if err != nil {
		return fmt.Errorf("failed to open log of %s: %w", key, err)
	}
	defer rc.Close()

	prof, err := simlog.BuildProfile(rc)
	if err != nil {
		return fmt.Errorf("failed to build profile of %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create profile file: %w", err)
	}
	if err := prof.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	a.logger.Debug().Str("run", key.Token).Str("path", path).Int("samples", len(prof.Sample)).Msg("Profile written")
	return nil
}
