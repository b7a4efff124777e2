package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vadiminshakov/icofund/internal/storage/journal"
)

func (s *session) historyCmd() *cobra.Command {
	var after uint64
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List journalled workflow steps, optionally for one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cfg.JournalDir == "" {
				return errors.New("journal is disabled (journal_dir is empty)")
			}

			store, err := journal.NewWALStore(s.cfg.JournalDir)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					s.logger.Warn("failed to close journal", zap.Error(err))
				}
			}()

			var records []journal.Record
			if len(args) == 1 {
				records, err = store.Run(args[0])
			} else {
				records, err = store.RecordsAfter(after)
			}
			if err != nil {
				return err
			}

			newPrinter(s.out).records(records)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&after, "after", 0, "only show records after this journal index")
	return cmd
}
