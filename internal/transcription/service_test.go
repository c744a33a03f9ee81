package transcription_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/preppal/internal/metadata"
	mock_transcription "github.com/at-ishikawa/preppal/internal/mocks/transcription"
	"github.com/at-ishikawa/preppal/internal/transcription"
)

func backendTranscription(id string) transcription.Transcription {
	return transcription.Transcription{
		ID:     id,
		Title:  "derived title...",
		Text:   "derived title and more",
		Tags:   []string{},
		Status: transcription.StatusCompleted,
	}
}

func TestService_Get(t *testing.T) {
	tests := []struct {
		name     string
		stored   *metadata.Metadata
		wantView func() transcription.Transcription
	}{
		{
			name: "backend values without metadata",
			wantView: func() transcription.Transcription {
				return backendTranscription("t1")
			},
		},
		{
			name: "metadata overrides backend values",
			stored: &metadata.Metadata{
				Title:   metadata.Ptr("My lecture"),
				Summary: metadata.Ptr("Short summary"),
				Tags:    []string{"ml"},
			},
			wantView: func() transcription.Transcription {
				want := backendTranscription("t1")
				want.Title = "My lecture"
				want.Summary = "Short summary"
				want.Tags = []string{"ml"}
				return want
			},
		},
		{
			name:   "absent fields keep backend values",
			stored: &metadata.Metadata{Summary: metadata.Ptr("Only summary")},
			wantView: func() transcription.Transcription {
				want := backendTranscription("t1")
				want.Summary = "Only summary"
				return want
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			gateway := mock_transcription.NewMockGateway(ctrl)
			gateway.EXPECT().GetTranscription(gomock.Any(), "t1").Return(backendTranscription("t1"), nil)

			store := metadata.NewFileStore(t.TempDir())
			if tt.stored != nil {
				require.NoError(t, store.UpdateMetadata(context.Background(), "t1", *tt.stored))
			}

			got, err := transcription.NewService(gateway, store).Get(context.Background(), "t1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantView(), got)
		})
	}
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mock_transcription.NewMockGateway(ctrl)
	gateway.EXPECT().GetTranscriptions(gomock.Any()).Return([]transcription.Transcription{
		backendTranscription("t1"),
		backendTranscription("t2"),
	}, nil)

	store := metadata.NewFileStore(t.TempDir())
	require.NoError(t, store.UpdateMetadata(context.Background(), "t2", metadata.Metadata{Title: metadata.Ptr("Second")}))

	got, err := transcription.NewService(gateway, store).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "derived title...", got[0].Title)
	assert.Equal(t, "Second", got[1].Title)
}

func TestService_Tags(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	gateway := mock_transcription.NewMockGateway(ctrl)
	gateway.EXPECT().GetTranscription(gomock.Any(), "t1").Return(backendTranscription("t1"), nil).AnyTimes()

	store := metadata.NewFileStore(t.TempDir())
	service := transcription.NewService(gateway, store)

	got, err := service.AddTag(ctx, "t1", "  algorithms ")
	require.NoError(t, err)
	assert.Equal(t, []string{"algorithms"}, got.Tags)

	got, err = service.AddTag(ctx, "t1", "   ")
	require.NoError(t, err)
	assert.Equal(t, []string{"algorithms"}, got.Tags)

	got, err = service.AddTag(ctx, "t1", "ml")
	require.NoError(t, err)
	assert.Equal(t, []string{"algorithms", "ml"}, got.Tags)

	got, err = service.RemoveTag(ctx, "t1", "algorithms")
	require.NoError(t, err)
	assert.Equal(t, []string{"ml"}, got.Tags)

	stored, err := store.GetMetadata(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ml"}, stored.Tags)
}

func TestService_UpdateMetadata(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	gateway := mock_transcription.NewMockGateway(ctrl)
	gateway.EXPECT().GetTranscription(gomock.Any(), "t1").Return(backendTranscription("t1"), nil).Times(2)

	service := transcription.NewService(gateway, metadata.NewFileStore(t.TempDir()))

	_, err := service.UpdateMetadata(ctx, "t1", metadata.Metadata{Title: metadata.Ptr("A")})
	require.NoError(t, err)
	got, err := service.UpdateMetadata(ctx, "t1", metadata.Metadata{Summary: metadata.Ptr("B")})
	require.NoError(t, err)

	assert.Equal(t, "A", got.Title)
	assert.Equal(t, "B", got.Summary)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes local metadata", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := mock_transcription.NewMockGateway(ctrl)
		gateway.EXPECT().DeleteTranscription(gomock.Any(), "t1").Return(nil)

		store := metadata.NewFileStore(t.TempDir())
		require.NoError(t, store.UpdateMetadata(ctx, "t1", metadata.Metadata{Title: metadata.Ptr("A")}))

		require.NoError(t, transcription.NewService(gateway, store).Delete(ctx, "t1"))

		got, err := store.GetMetadata(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, metadata.Metadata{}, got)
	})

	t.Run("keeps metadata when the backend fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		gateway := mock_transcription.NewMockGateway(ctrl)
		backendErr := &transcription.RequestFailedError{StatusCode: 404, Detail: "Transcription not found"}
		gateway.EXPECT().DeleteTranscription(gomock.Any(), "t1").Return(backendErr)

		store := metadata.NewFileStore(t.TempDir())
		require.NoError(t, store.UpdateMetadata(ctx, "t1", metadata.Metadata{Title: metadata.Ptr("A")}))

		err := transcription.NewService(gateway, store).Delete(ctx, "t1")
		var requestErr *transcription.RequestFailedError
		require.True(t, errors.As(err, &requestErr))
		assert.Equal(t, "Transcription not found", requestErr.Detail)

		got, err := store.GetMetadata(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, metadata.Ptr("A"), got.Title)
	})
}
