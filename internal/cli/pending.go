package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
)

// NewPendingCmd создаёт группу команд для просмотра ожидающих заявок.
func NewPendingCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect pending requests",
	}

	cmd.AddCommand(newPendingListCmd(backendFn, outputFn))

	return cmd
}

func newPendingListCmd(backendFn func() Backend, outputFn func() *Output) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending requests of a kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(kindFlag)
			if err != nil {
				return err
			}

			items, err := backendFn().ListPending(cmd.Context(), kind.String())
			if err != nil {
				return err
			}

			headers := []string{"KEY", "KIND", "PHASE", "CHANNEL", "CREATED"}
			rows := make([][]string, len(items))
			for i, it := range items {
				rows[i] = []string{it.Key, it.Kind, it.Phase, it.ChannelID, it.CreatedAt.Format(time.RFC3339)}
			}

			return outputFn().Print(headers, rows, items)
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Request kind (application, termination, promotion, issuance, transfer)")
	cmd.MarkFlagRequired("kind")

	return cmd
}
