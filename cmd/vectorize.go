package cmd

import (
	"context"
	"fmt"
	"time"

	"codevectorizer/internal/application/service"
	"codevectorizer/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// newVectorizeCmd creates the one-shot vectorize command. It runs the full
// ingestion pipeline in-process without going through the work queue,
// which is useful for local indexing and for debugging pipeline behavior.
func newVectorizeCmd() *cobra.Command {
	var (
		repoURL  string
		tenant   string
		repoName string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "vectorize",
		Short: "Vectorize a repository synchronously",
		Long: `Clone a repository, chunk its files, generate embeddings, and store
them, all within this process.

Unlike the api/worker pair this command does not use NATS: the job runs to
completion before the command exits. Files whose content fingerprint is
unchanged since the previous run are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVectorize(cmd, repoURL, tenant, repoName, timeout)
		},
	}

	cmd.Flags().StringVar(&repoURL, "repo-url", "", "Clone URL of the repository (required)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Tenant the repository belongs to (required)")
	cmd.Flags().StringVar(&repoName, "repo-name", "", "Repository name (default: derived from the URL)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall job timeout")
	_ = cmd.MarkFlagRequired("repo-url")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

//nolint:gochecknoinits // Standard Cobra CLI pattern.
func init() {
	rootCmd.AddCommand(newVectorizeCmd())
}

func runVectorize(cmd *cobra.Command, repoURL, tenant, repoName string, timeout time.Duration) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if repoName == "" {
		repoName = service.RepoNameFromURL(repoURL)
	}
	if repoName == "" {
		return fmt.Errorf("cannot derive a repository name from %q, pass --repo-name", repoURL)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	pool, err := setupDatabasePool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	processor, tracker, err := createProcessor(cfg, pool)
	if err != nil {
		return err
	}

	jobID := uuid.New()
	message := outbound.VectorizeJobMessage{
		JobID:     jobID,
		Tenant:    tenant,
		RepoName:  repoName,
		RepoURL:   repoURL,
		Timestamp: time.Now().UTC(),
	}
	if err := processor.ProcessJob(ctx, message); err != nil {
		return err
	}

	snapshot, err := tracker.Get(jobID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "vectorized %s/%s: %d files processed, %d chunks saved\n",
		tenant, repoName, snapshot.Progress.FilesProcessed, snapshot.Progress.ChunksSaved)
	return nil
}
