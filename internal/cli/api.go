package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"vistora/internal/telegram"
)

// call performs one request and prints the decoded response.
func call(cmd *cobra.Command, g *globals, method, path string, body any) error {
	out, err := g.client().Do(cmd.Context(), method, path, body)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func newHealthCmd(g *globals) *cobra.Command {
	return &cobra.Command{Use: "health", Short: "Check service health", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/healthz", nil)
	}}
}

func newCapabilitiesCmd(g *globals) *cobra.Command {
	return &cobra.Command{Use: "capabilities", Short: "Show system capabilities", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/system/capabilities", nil)
	}}
}

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{Use: "status", Short: "Show queue and worker status", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/system/status", nil)
	}}
}

func newModelsCmd(g *globals) *cobra.Command {
	return &cobra.Command{Use: "models", Short: "Show model catalog", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/models/catalog", nil)
	}}
}

func newJobsCmd(g *globals) *cobra.Command {
	jobs := &cobra.Command{Use: "jobs", Short: "Job operations"}

	var input, output, user, profile, runnerName, quality string
	var detector, restorer, refiner, options string
	var credits, hint int
	create := &cobra.Command{Use: "create", Short: "Create a job", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseJSONObject(options, "options")
		if err != nil {
			return err
		}
		payload := map[string]any{
			"input_path":     input,
			"user_id":        user,
			"runner":         runnerName,
			"quality_tier":   quality,
			"detector_model": detector,
			"restorer_model": restorer,
			"options":        opts,
		}
		if output != "" {
			payload["output_path"] = output
		}
		if profile != "" {
			payload["profile_name"] = profile
		}
		if cmd.Flags().Changed("refiner") {
			payload["refiner_model"] = refiner
		}
		if cmd.Flags().Changed("estimated-credits") {
			payload["estimated_credits"] = credits
		}
		if cmd.Flags().Changed("duration-hint-seconds") {
			payload["duration_hint_seconds"] = hint
		}
		return call(cmd, g, http.MethodPost, "/api/v1/jobs", payload)
	}}
	f := create.Flags()
	f.StringVar(&input, "input", "", "Input video path")
	f.StringVar(&output, "output", "", "Output video path")
	f.StringVar(&user, "user", "anonymous", "User id")
	f.StringVar(&profile, "profile", "", "Profile name")
	f.StringVar(&runnerName, "runner", "auto", "Runner: auto|simulated|external (aliases dry-run, lada-cli)")
	f.StringVar(&quality, "quality", "ultra", "Quality tier: balanced|high|ultra")
	f.StringVar(&detector, "detector", "", "Detector model id")
	f.StringVar(&restorer, "restorer", "", "Restorer model id")
	f.StringVar(&refiner, "refiner", "", "Refiner model id (empty disables refinement)")
	f.IntVar(&credits, "estimated-credits", 0, "Override the credit estimate")
	f.IntVar(&hint, "duration-hint-seconds", 0, "Video duration hint")
	f.StringVar(&options, "options", "{}", "JSON object of runner options")
	_ = create.MarkFlagRequired("input")

	var listUser string
	list := &cobra.Command{Use: "list", Short: "List jobs", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/jobs"
		if listUser != "" {
			path += "?user=" + url.QueryEscape(listUser)
		}
		return call(cmd, g, http.MethodGet, path, nil)
	}}
	list.Flags().StringVar(&listUser, "user", "", "Filter by user id")

	get := &cobra.Command{Use: "get <job-id>", Short: "Get job detail", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/jobs/"+url.PathEscape(args[0]), nil)
	}}
	cancel := &cobra.Command{Use: "cancel <job-id>", Short: "Cancel a queued job", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodPost, "/api/v1/jobs/"+url.PathEscape(args[0])+"/cancel", nil)
	}}
	jobs.AddCommand(create, list, get, cancel)
	return jobs
}

func newEventsCmd(g *globals) *cobra.Command {
	var since, wait int
	cmd := &cobra.Command{Use: "events", Short: "Show job events after a sequence number", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, fmt.Sprintf("/api/v1/events?since=%d&wait=%d", since, wait), nil)
	}}
	cmd.Flags().IntVar(&since, "since", 0, "Last seen sequence number")
	cmd.Flags().IntVar(&wait, "wait", 0, "Long-poll seconds (max 30)")
	return cmd
}

func newCreditsCmd(g *globals) *cobra.Command {
	credits := &cobra.Command{Use: "credits", Short: "Credit operations"}
	balance := &cobra.Command{Use: "balance <user-id>", Short: "Query user balance", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/credits/"+url.PathEscape(args[0]), nil)
	}}
	var reason string
	topup := &cobra.Command{Use: "topup <user-id> <amount>", Short: "Top up user credits", Args: cobra.ExactArgs(2), RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("amount must be an integer: %q", args[1])
		}
		return call(cmd, g, http.MethodPost, "/api/v1/credits/"+url.PathEscape(args[0])+"/topup", map[string]any{"amount": amount, "reason": reason})
	}}
	topup.Flags().StringVar(&reason, "reason", "manual_topup", "Ledger reason")
	txns := &cobra.Command{Use: "transactions <user-id>", Short: "List credit transactions", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/credits/"+url.PathEscape(args[0])+"/transactions", nil)
	}}
	credits.AddCommand(balance, topup, txns)
	return credits
}

func newProfilesCmd(g *globals) *cobra.Command {
	profiles := &cobra.Command{Use: "profiles", Short: "Profile operations"}
	list := &cobra.Command{Use: "list", Short: "List profiles", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/profiles", nil)
	}}
	get := &cobra.Command{Use: "get <name>", Short: "Get profile detail", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd, g, http.MethodGet, "/api/v1/profiles/"+url.PathEscape(args[0]), nil)
	}}
	var settings string
	put := &cobra.Command{Use: "put <name>", Short: "Create or update a profile", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		s, err := parseJSONObject(settings, "settings")
		if err != nil {
			return err
		}
		return call(cmd, g, http.MethodPut, "/api/v1/profiles/"+url.PathEscape(args[0]), map[string]any{"settings": s})
	}}
	put.Flags().StringVar(&settings, "settings", "", "JSON object")
	_ = put.MarkFlagRequired("settings")
	profiles.AddCommand(list, get, put)
	return profiles
}

func newTgCmd(g *globals) *cobra.Command {
	tg := &cobra.Command{Use: "tg", Short: "Telegram webhook test operations"}
	var event, user, payload, secret string
	send := &cobra.Command{Use: "send", Short: "Send a webhook event", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseJSONObject(payload, "payload")
		if err != nil {
			return err
		}
		var headers map[string]string
		if secret != "" {
			headers = map[string]string{"X-Telegram-Bot-Api-Secret-Token": secret}
		}
		body := map[string]any{"event": event, "user_id": user, "payload": p}
		out, err := g.client().DoWithHeaders(cmd.Context(), http.MethodPost, "/api/v1/tg/webhook", body, headers)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}}
	send.Flags().StringVar(&event, "event", "", fmt.Sprintf("Event name %v", telegram.Events()))
	send.Flags().StringVar(&user, "user-id", "anonymous", "User id")
	send.Flags().StringVar(&payload, "payload", "{}", "JSON object payload")
	send.Flags().StringVar(&secret, "secret", os.Getenv("VISTORA_TG_SECRET"), "Webhook secret token (defaults VISTORA_TG_SECRET)")
	_ = send.MarkFlagRequired("event")
	tg.AddCommand(send)
	return tg
}
