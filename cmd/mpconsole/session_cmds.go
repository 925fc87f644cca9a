package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MrEthical07/mpconsole"
	"github.com/MrEthical07/mpconsole/jwt"
	"github.com/MrEthical07/mpconsole/router"
	"github.com/spf13/cobra"
)

const passwordEnv = "MPCONSOLE_PASSWORD"

func loginCmd(opts *globalOptions) *cobra.Command {
	var (
		username      string
		password      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: `Log in with a username and password. The password is read from
--password, then $MPCONSOLE_PASSWORD, then the first line of stdin
when --password-stdin is set.`,
		Example: `  mpconsole login -u admin --password-stdin < pass.txt
  MPCONSOLE_PASSWORD=secret mpconsole login -u admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				return errors.New("--username is required")
			}
			pw, err := resolvePassword(cmd.InOrStdin(), password, passwordStdin)
			if err != nil {
				return err
			}

			console, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer console.Close()

			res, err := console.Login(cmd.Context(), username, pw)
			if errors.Is(err, mpconsole.ErrInvalidCredentials) {
				return errors.New("login failed: invalid username or password")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (now at %s)\n",
				console.Session().Current().Username, res.To)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prefer --password-stdin)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func resolvePassword(stdin io.Reader, flagValue string, fromStdin bool) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(passwordEnv); v != "" {
		return v, nil
	}
	if !fromStdin {
		return "", fmt.Errorf("no password given; use --password, $%s or --password-stdin", passwordEnv)
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}

func logoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			console, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer console.Close()

			wasAuthenticated := console.Session().Authenticated()
			if _, err := console.Logout(cmd.Context()); err != nil {
				return err
			}
			if wasAuthenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			}
			return nil
		},
	}
}

type whoami struct {
	Username  string    `json:"username"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
	Expired   bool      `json:"expired"`
	Verified  *bool     `json:"verified,omitempty"`
}

func whoamiCmd(opts *globalOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Long: `Show the stored username and what the token says about itself. The
token is decoded locally without checking its signature; --verify asks
the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				cred := c.Session().Current()
				info := whoami{Username: cred.Username}

				if claims, err := jwt.Inspect(cred.Token); err == nil {
					info.UserID = claims.UserID
					info.ExpiresAt = claims.Expiry()
					info.Expired = claims.Expired(time.Now())
					if info.Username == "" {
						info.Username = claims.Username
					}
				}

				if verify {
					err := c.API().Me(ctx)
					if err != nil && !errors.Is(err, mpconsole.ErrUnauthorized) {
						return err
					}
					ok := err == nil
					info.Verified = &ok
				}

				if opts.jsonOutput {
					return opts.printJSON(cmd, info)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Username:\t%s\n", info.Username)
				if info.UserID != "" {
					fmt.Fprintf(tw, "User ID:\t%s\n", info.UserID)
				}
				if !info.ExpiresAt.IsZero() {
					state := "valid"
					if info.Expired {
						state = "expired"
					}
					fmt.Fprintf(tw, "Expires:\t%s (%s)\n", info.ExpiresAt.Local().Format(time.RFC3339), state)
				}
				if info.Verified != nil {
					fmt.Fprintf(tw, "Server check:\t%t\n", *info.Verified)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "ask the server whether the token is still accepted")
	return cmd
}

func navCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "nav <path>",
		Short: "Resolve a console path through the login guard",
		Long: `Resolve a console path the way the web console does on navigation and
print every redirect taken on the way.`,
		Example: `  mpconsole nav /
  mpconsole nav /articles`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			console, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer console.Close()

			res, err := console.Navigate(args[0])
			if errors.Is(err, mpconsole.ErrRouteNotFound) {
				return fmt.Errorf("unknown path %q; known paths: %s", args[0], knownPaths(console.Navigator().Table()))
			}
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return opts.printJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			for _, hop := range res.Hops {
				fmt.Fprintf(out, "%s -> %s (%s)\n", hop.From, hop.To, hop.Reason)
			}
			fmt.Fprintf(out, "at %s (%s)\n", res.To, res.Route.Name)
			return nil
		},
	}
}

func knownPaths(t *router.Table) string {
	var paths []string
	for _, r := range t.Routes() {
		paths = append(paths, r.Path)
	}
	return strings.Join(paths, ", ")
}
