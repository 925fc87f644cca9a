package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/MrEthical07/mpconsole"
	"github.com/MrEthical07/mpconsole/apiclient"
	"github.com/MrEthical07/mpconsole/router"
	"github.com/spf13/cobra"
)

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
}

func articlesCmd(opts *globalOptions) *cobra.Command {
	var q apiclient.ArticleQuery

	cmd := &cobra.Command{
		Use:   "articles",
		Short: "List crawled articles",
		Example: `  mpconsole articles --mp-name 人民日报 --start 2024-01-01
  mpconsole articles -q 发布会 --page 2 --page-size 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if _, err := c.Navigate(router.ArticlesPath); err != nil {
					return err
				}
				page, err := c.API().ListArticles(ctx, q)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(cmd, page)
				}

				tw := newTable(cmd)
				fmt.Fprintln(tw, "PUBLISHED\tACCOUNT\tTITLE\tURL")
				for _, a := range page.Items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.PublishAt, a.MPName, a.Title, a.URL)
				}
				fmt.Fprintf(tw, "\n%d of %d\n", len(page.Items), page.Total)
				return tw.Flush()
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&q.MPName, "mp-name", "", "filter by official account name")
	f.StringVarP(&q.Q, "query", "q", "", "search titles")
	f.StringVar(&q.Start, "start", "", "earliest publish date (YYYY-MM-DD)")
	f.StringVar(&q.End, "end", "", "latest publish date (YYYY-MM-DD)")
	f.IntVar(&q.Page, "page", 0, "page number, 1-based")
	f.IntVar(&q.PageSize, "page-size", 0, "items per page")
	return cmd
}

func targetsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage crawl targets",
	}
	cmd.AddCommand(
		targetsListCmd(opts),
		targetsGetCmd(opts),
		targetsCreateCmd(opts),
		targetsEnableCmd(opts, true),
		targetsEnableCmd(opts, false),
		targetsRunCmd(opts),
		targetsDeleteCmd(opts),
		targetsCategoriesCmd(opts),
	)
	return cmd
}

func targetsListCmd(opts *globalOptions) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List crawl targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				targets, err := c.API().ListTargets(ctx, query)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(cmd, targets)
				}

				tw := newTable(cmd)
				fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSCHEDULE\tENABLED\tLAST RUN")
				for _, t := range targets {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
						t.ID, t.Name, t.Category, schedule(t), t.Enabled, t.LastRunAt)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name")
	return cmd
}

func schedule(t apiclient.Target) string {
	switch t.ScheduleMode {
	case "daily":
		return "daily " + strings.Join(t.DailyTimes, ",")
	case "interval":
		if t.IntervalValue != nil {
			return fmt.Sprintf("every %d %s", *t.IntervalValue, t.IntervalUnit)
		}
	case "cron":
		return "cron " + t.CronExpr
	}
	if t.FreqMinutes != nil {
		return fmt.Sprintf("every %d minutes", *t.FreqMinutes)
	}
	return t.ScheduleMode
}

func targetsGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one crawl target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				t, err := c.API().GetTarget(ctx, args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(cmd, t)
				}

				tw := newTable(cmd)
				fmt.Fprintf(tw, "ID:\t%s\n", t.ID)
				fmt.Fprintf(tw, "Name:\t%s\n", t.Name)
				fmt.Fprintf(tw, "Biz:\t%s\n", t.Biz)
				fmt.Fprintf(tw, "Category:\t%s\n", t.Category)
				fmt.Fprintf(tw, "Schedule:\t%s\n", schedule(t))
				fmt.Fprintf(tw, "Enabled:\t%t\n", t.Enabled)
				fmt.Fprintf(tw, "Account:\t%s\n", t.AccountID)
				fmt.Fprintf(tw, "Last run:\t%s\n", t.LastRunAt)
				if t.LastError != "" {
					fmt.Fprintf(tw, "Last error:\t%s\n", t.LastError)
				}
				return tw.Flush()
			})
		},
	}
}

func targetsCreateCmd(opts *globalOptions) *cobra.Command {
	var (
		name, biz, category, accountID string
		mode, unit, cron               string
		interval                       int
		dailyTimes                     []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a crawl target",
		Example: `  mpconsole targets create --name 人民日报 --account acc-1 --daily 08:00,20:00
  mpconsole targets create --name 新华社 --account acc-1 --mode interval --interval 6 --unit hours`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := apiclient.TargetInput{
				Name:      &name,
				AccountID: &accountID,
			}
			flags := cmd.Flags()
			if flags.Changed("biz") {
				in.Biz = &biz
			}
			if flags.Changed("category") {
				in.Category = &category
			}
			if flags.Changed("mode") {
				in.ScheduleMode = &mode
			}
			if flags.Changed("interval") {
				in.IntervalValue = &interval
			}
			if flags.Changed("unit") {
				in.IntervalUnit = &unit
			}
			if flags.Changed("cron") {
				in.CronExpr = &cron
			}
			if flags.Changed("daily") {
				in.DailyTimes = dailyTimes
			}

			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				t, err := c.API().CreateTarget(ctx, in)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(cmd, t)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created target %s (%s)\n", t.ID, t.Name)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "official account name")
	f.StringVar(&accountID, "account", "", "platform account used to crawl")
	f.StringVar(&biz, "biz", "", "official account biz id")
	f.StringVar(&category, "category", "", "category label")
	f.StringVar(&mode, "mode", "", "schedule mode: daily, interval or cron")
	f.IntVar(&interval, "interval", 0, "interval value for --mode interval")
	f.StringVar(&unit, "unit", "", "interval unit: minutes, hours or days")
	f.StringVar(&cron, "cron", "", "cron expression for --mode cron")
	f.StringSliceVar(&dailyTimes, "daily", nil, "HH:MM run times for --mode daily")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func targetsEnableCmd(opts *globalOptions, enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable scheduled crawling of a target"
	if !enable {
		use, short = "disable <id>", "Pause scheduled crawling of a target"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				t, err := c.API().UpdateTarget(ctx, args[0], apiclient.TargetInput{Enabled: &enable})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Target %s enabled=%t\n", t.ID, t.Enabled)
				return nil
			})
		},
	}
}

func targetsRunCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Trigger a crawl now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if err := c.API().RunTarget(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Crawl triggered for %s\n", args[0])
				return nil
			})
		},
	}
}

func targetsDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a crawl target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if err := c.API().DeleteTarget(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted target %s\n", args[0])
				return nil
			})
		},
	}
}

func targetsCategoriesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List target categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				cats, err := c.API().ListCategories(ctx)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(cmd, cats)
				}
				for _, cat := range cats {
					fmt.Fprintln(cmd.OutOrStdout(), cat)
				}
				return nil
			})
		},
	}
}

func accountsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage platform accounts used for crawling",
	}
	cmd.AddCommand(accountsListCmd(opts), accountsCreateCmd(opts), accountsDeleteCmd(opts))
	return cmd
}

func accountsListCmd(opts *globalOptions) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List platform accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if _, err := c.Navigate(router.ConfigPath); err != nil {
					return err
				}
				accounts, err := c.API().ListAccounts(ctx, query)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(cmd, accounts)
				}

				tw := newTable(cmd)
				fmt.Fprintln(tw, "ID\tNAME\tREMARK\tUPDATED")
				for _, a := range accounts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Remark, a.UpdatedAt)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "filter by name")
	return cmd
}

func accountsCreateCmd(opts *globalOptions) *cobra.Command {
	var name, token, cookie, remark string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a platform account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := apiclient.AccountInput{Name: &name, Token: &token, Cookie: &cookie}
			if remark != "" {
				in.Remark = &remark
			}
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				a, err := c.API().CreateAccount(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", a.ID, a.Name)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "account display name")
	f.StringVar(&token, "token", "", "platform token")
	f.StringVar(&cookie, "cookie", "", "platform cookie")
	f.StringVar(&remark, "remark", "", "free-form note")
	for _, req := range []string{"name", "token", "cookie"} {
		_ = cmd.MarkFlagRequired(req)
	}
	return cmd
}

func accountsDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a platform account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if err := c.API().DeleteAccount(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", args[0])
				return nil
			})
		},
	}
}

func logsCmd(opts *globalOptions) *cobra.Command {
	var q apiclient.LogQuery

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List crawl logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if _, err := c.Navigate(router.LogsPath); err != nil {
					return err
				}
				page, err := c.API().ListLogs(ctx, q)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return opts.printJSON(cmd, page)
				}

				tw := newTable(cmd)
				fmt.Fprintln(tw, "TIME\tTARGET\tSTATUS\tNEW\tDURATION\tMESSAGE")
				for _, l := range page.Items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						l.CreatedAt, l.TargetName, l.Status, optInt(l.NewCount), optMillis(l.DurationMS), l.Message)
				}
				fmt.Fprintf(tw, "\n%d of %d\n", len(page.Items), page.Total)
				return tw.Flush()
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&q.TargetID, "target-id", "", "filter by target id")
	f.StringVar(&q.TargetName, "target", "", "filter by target name")
	f.StringVar(&q.Status, "status", "", "filter by status (success, failed, running, timeout)")
	f.BoolVar(&q.LatestOnly, "latest", false, "only the most recent log per target")
	f.IntVar(&q.Page, "page", 0, "page number, 1-based")
	f.IntVar(&q.PageSize, "page-size", 0, "items per page")

	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Mark stale running logs as timed out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if err := c.API().CleanupLogs(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Stale logs cleaned up")
				return nil
			})
		},
	})
	return cmd
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optMillis(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1fs", float64(*v)/1000)
}

func healthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			console, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer console.Close()

			h, err := console.API().Health(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return opts.printJSON(cmd, h)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", console.API().BaseURL(), h.Status)
			return nil
		},
	}
}

func refreshJobsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-jobs",
		Short: "Reload the crawl scheduler from the stored targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, c *mpconsole.Console) error {
				if err := c.API().RefreshJobs(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Scheduler jobs refreshed")
				return nil
			})
		},
	}
}
