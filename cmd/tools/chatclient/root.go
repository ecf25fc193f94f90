package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/support-desk/backend/internal/logging"
	"github.com/zhouzirui/support-desk/backend/internal/service/messaging"
)

var (
	serverURL     string
	streamBaseURL string
	logLevel      string

	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chatclient",
		Short: "终端客服聊天客户端",
		Long:  "chatclient opens a customer support session against a support-desk server and chats from the terminal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			log = logging.New(cmd.ErrOrStderr(), logLevel)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "support-desk server url")
	cmd.PersistentFlags().StringVar(&streamBaseURL, "stream-url", messaging.DefaultBaseURL, "messaging backend url")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newChatCmd())

	return cmd
}

type profileFlags struct {
	first string
	last  string
	email string
}

func (p *profileFlags) register(cmd *cobra.Command, withEmail bool) {
	cmd.Flags().StringVar(&p.first, "first", "", "customer first name")
	cmd.Flags().StringVar(&p.last, "last", "", "customer last name")
	_ = cmd.MarkFlagRequired("first")
	_ = cmd.MarkFlagRequired("last")
	if withEmail {
		cmd.Flags().StringVar(&p.email, "email", "", "customer email used as the callback address")
		_ = cmd.MarkFlagRequired("email")
	}
}
