package workflows

import (
	"context"
	"errors"
	"testing"

	"supportbot/internal/activities"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"
)

func TestFolderIngestWorkflowCountsChildOutcomes(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(FolderIngestWorkflow)
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerActivityName(env, "ListDocumentFilesActivity", func(context.Context, activities.ListDocumentFilesInput) (activities.ListDocumentFilesOutput, error) {
		return activities.ListDocumentFilesOutput{}, nil
	})
	registerActivityName(env, "WriteIngestSummaryActivity", func(context.Context, activities.WriteIngestSummaryInput) error { return nil })

	env.OnActivity("ListDocumentFilesActivity", mock.Anything, activities.ListDocumentFilesInput{InputDir: "/data/in"}).
		Return(activities.ListDocumentFilesOutput{Paths: []string{"/data/in/a.pdf", "/data/in/b.txt", "/data/in/c.docx", "/data/in/d.md"}}, nil)
	env.OnWorkflow(DocumentIngestWorkflow, mock.Anything, mock.Anything).Return(
		func(_ workflow.Context, in DocumentIngestInput) (DocumentIngestResult, error) {
			switch in.FilePath {
			case "/data/in/b.txt":
				return DocumentIngestResult{Status: StatusFailed, FailReason: "no extractable text found"}, nil
			case "/data/in/d.md":
				return DocumentIngestResult{}, errors.New("child crashed")
			}
			return DocumentIngestResult{Status: StatusProcessed, ChunkCount: 2}, nil
		})
	env.OnActivity("WriteIngestSummaryActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(FolderIngestWorkflow, FolderIngestInput{InputDir: "/data/in", MaxConcurrentChildren: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out FolderIngestProgress
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 4, out.Total)
	require.Equal(t, 4, out.Done)
	require.Equal(t, 2, out.Failed)
	require.Equal(t, StatusFailed, out.PerFile["/data/in/b.txt"])
	require.Equal(t, StatusFailed, out.PerFile["/data/in/d.md"])
	require.Equal(t, StatusProcessed, out.PerFile["/data/in/a.pdf"])
}

func TestFolderIngestWorkflowCompletesWhenSummaryFails(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(FolderIngestWorkflow)
	env.RegisterWorkflow(DocumentIngestWorkflow)
	registerActivityName(env, "ListDocumentFilesActivity", func(context.Context, activities.ListDocumentFilesInput) (activities.ListDocumentFilesOutput, error) {
		return activities.ListDocumentFilesOutput{}, nil
	})
	registerActivityName(env, "WriteIngestSummaryActivity", func(context.Context, activities.WriteIngestSummaryInput) error { return nil })

	env.OnActivity("ListDocumentFilesActivity", mock.Anything, mock.Anything).
		Return(activities.ListDocumentFilesOutput{Paths: []string{"/data/in/a.pdf"}}, nil)
	env.OnWorkflow(DocumentIngestWorkflow, mock.Anything, mock.Anything).
		Return(DocumentIngestResult{Status: StatusProcessed, ChunkCount: 1}, nil)
	env.OnActivity("WriteIngestSummaryActivity", mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("disk full", "SummaryWriteFailed", nil))

	env.ExecuteWorkflow(FolderIngestWorkflow, FolderIngestInput{InputDir: "/data/in"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out FolderIngestProgress
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, 1, out.Done)
	require.Equal(t, 0, out.Failed)
}

func TestSanitizeID(t *testing.T) {
	require.Equal(t, "my-guide-v2-pdf", sanitizeID("My Guide_v2.pdf"))
}
