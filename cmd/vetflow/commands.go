package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jrsteele09/vetflow-console/auth"
	"github.com/jrsteele09/vetflow-console/internal/config"
	"github.com/jrsteele09/vetflow-console/payment"
	"github.com/jrsteele09/vetflow-console/subscription"
	"github.com/jrsteele09/vetflow-console/users"
)

func newRootCommand(cfg config.Config) *cobra.Command {
	var (
		a           *app
		metricsFile string
		quiet       bool
	)

	root := &cobra.Command{
		Use:           "vetflow",
		Short:         "VetFlow clinic account console",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !quiet {
				displayAppname(cfg.GetAppName())
			}
			var err error
			a, err = newApp(cfg, cmd.ErrOrStderr())
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics(metricsFile)
		},
	}
	root.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write request and session metrics to this file on exit")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not print the banner")

	current := func() *app { return a }
	root.AddCommand(
		newLoginCommand(current),
		newRegisterCommand(current),
		newLogoutCommand(current),
		newWhoAmICommand(current),
		newOAuthCallbackCommand(current),
		newPaymentStatusCommand(current),
		newPlansCommand(current),
		newLimitsCommand(current),
		newCheckoutCommand(current),
		newTrialCommand(current),
	)
	return root
}

func newLoginCommand(current func() *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				if password, err = prompt(cmd, "Password: "); err != nil {
					return err
				}
			}
			u, err := current().session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", u.DisplayName())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password, read from stdin when omitted")
	return cmd
}

func newRegisterCommand(current func() *app) *cobra.Command {
	var r users.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a clinic account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.Password == "" {
				var err error
				if r.Password, err = prompt(cmd, "Password: "); err != nil {
					return err
				}
			}
			u, err := current().session.Register(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome %s, %s is ready\n", u.DisplayName(), u.ClinicName)
			return nil
		},
	}
	cmd.Flags().StringVar(&r.Name, "name", "", "your name")
	cmd.Flags().StringVar(&r.Email, "email", "", "account email")
	cmd.Flags().StringVar(&r.Password, "password", "", "account password, read from stdin when omitted")
	cmd.Flags().StringVar(&r.ClinicName, "clinic", "", "clinic name")
	return cmd
}

func newLogoutCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := current().session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoAmICommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the stored session and show the signed in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := current().session.RequireAuthenticated(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "not signed in")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:   %s\n", u.DisplayName())
			fmt.Fprintf(out, "Email:  %s\n", u.Email)
			fmt.Fprintf(out, "Clinic: %s\n", u.ClinicName)
			fmt.Fprintf(out, "ID:     %s\n", u.ID)
			return nil
		},
	}
}

func newOAuthCallbackCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "oauth-callback <redirect-url>",
		Short: "Complete a Google sign in from the redirect URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			target := auth.HandleOAuthRedirect(cmd.Context(), a.session, args[0])
			if target != auth.RedirectDashboard {
				return errors.New("google sign in failed, please log in again")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", a.session.State().User.DisplayName())
			return nil
		},
	}
}

func newPaymentStatusCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "payment-status <session-id|return-url>",
		Short: "Wait for a checkout to be confirmed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			out := cmd.OutOrStdout()

			sessionID := args[0]
			if strings.Contains(sessionID, "?") {
				ret, err := subscription.ParseCheckoutReturn(sessionID)
				if err != nil {
					return err
				}
				if ret.Cancelled() {
					fmt.Fprintln(out, "Payment was cancelled")
					return nil
				}
				sessionID = ret.SessionID
			}

			if _, err := a.session.RequireAuthenticated(cmd.Context()); err != nil {
				return errors.Wrap(err, "not signed in")
			}

			fmt.Fprintln(out, "Verifying payment...")
			res := a.poller.Run(cmd.Context(), sessionID)
			switch res.Outcome {
			case payment.OutcomePaid:
				fmt.Fprintln(out, "Payment confirmed, your subscription is active")
				printLimits(out, a.tracker.Snapshot().Limits)
				return nil
			case payment.OutcomeExpired:
				return errors.New("checkout session expired")
			case payment.OutcomeTimeout:
				return errors.New("payment not confirmed yet, check again later")
			case payment.OutcomeCancelled:
				return errors.New("payment check cancelled")
			default:
				if res.Err == nil {
					return errors.New("payment verification failed")
				}
				return errors.Wrap(res.Err, "payment verification failed")
			}
		},
	}
}

func newPlansCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List subscription plans and response packages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := current().client.Plans(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range catalog.SortedPlans() {
				customers := fmt.Sprintf("%d customers", p.CustomerLimit)
				if p.UnlimitedCustomers() {
					customers = "unlimited customers"
				}
				fmt.Fprintf(out, "%-14s %-14s $%s/month  %s, %d WhatsApp replies\n",
					p.ID, p.Name, p.Price.StringFixed(2), customers, p.UnregisteredResponseLimit)
			}
			for _, pack := range catalog.SortedPackages() {
				fmt.Fprintf(out, "%-14s %-14s $%s  %d replies\n", pack.ID, pack.Name, pack.Price.StringFixed(2), pack.Responses)
			}
			return nil
		},
	}
}

func newLimitsCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Show current plan usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limits, err := current().client.Limits(cmd.Context())
			if err != nil {
				return err
			}
			printLimits(cmd.OutOrStdout(), limits)
			return nil
		},
	}
}

func newCheckoutCommand(current func() *app) *cobra.Command {
	var pack bool
	cmd := &cobra.Command{
		Use:   "checkout <plan-id|pack-id>",
		Short: "Start a hosted checkout and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := current()
			origin := a.cfg.GetOriginURL()

			var (
				session *subscription.CheckoutSession
				err     error
			)
			if pack {
				session, err = a.client.CreateResponsePackCheckout(cmd.Context(), args[0], origin)
			} else {
				session, err = a.client.CreateCheckout(cmd.Context(), args[0], origin)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Open this link to pay:\n  %s\n", session.URL)
			fmt.Fprintf(out, "Then run: vetflow payment-status %s\n", session.SessionID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pack, "pack", false, "buy a WhatsApp response package instead of a plan")
	return cmd
}

func newTrialCommand(current func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trial",
		Short: "Start the free trial",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := current().client.StartTrial(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Trial started")
			return nil
		},
	}
}

func printLimits(out io.Writer, l *subscription.Limits) {
	if l == nil {
		return
	}
	if !l.HasSubscription {
		fmt.Fprintln(out, "No active subscription")
		return
	}
	fmt.Fprintf(out, "Plan:      %s\n", l.PlanName)
	if l.CustomerLimit.Limit == subscription.Unlimited {
		fmt.Fprintf(out, "Customers: %d (unlimited)\n", l.CustomerLimit.Current)
	} else {
		fmt.Fprintf(out, "Customers: %d / %d\n", l.CustomerLimit.Current, l.CustomerLimit.Limit)
	}
	if wa := l.WhatsAppResponses; wa != nil {
		fmt.Fprintf(out, "WhatsApp:  %d used of %d, %d extra, %d remaining\n", wa.Used, wa.MonthlyLimit, wa.ExtraBalance, wa.Remaining)
	}
	if l.PeriodEnd != nil {
		fmt.Fprintf(out, "Renews:    %s\n", l.PeriodEnd.Format("2006-01-02"))
	}
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.Wrap(err, "read input")
	}
	return strings.TrimSpace(line), nil
}
