package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"mcq-practice-service/internal/app"
	"mcq-practice-service/internal/domain"
)

func TestFetchMCQsSequentialReturnsApprovedOnlyInStableOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.addMCQ(t, sampleMCQ("english", fmt.Sprintf("q%d", i)), true)
	}
	f.addMCQ(t, sampleMCQ("english", "pending"), false)
	f.addMCQ(t, sampleMCQ("computer", "other"), true)

	first, err := f.service.FetchMCQsSequential(ctx, "english", 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	for _, mcq := range first {
		require.True(t, mcq.Approved)
		require.Equal(t, "english", mcq.CategoryID)
		require.NotEmpty(t, mcq.ID)
	}

	second, err := f.service.FetchMCQsSequential(ctx, "english", 3)
	require.NoError(t, err)
	require.Equal(t, first, second)

	all, err := f.service.FetchMCQsSequential(ctx, "english", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
}

func TestFetchMCQsRandomIsCappedSubsetOfApproved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	approved := map[string]bool{}
	for i := 0; i < 10; i++ {
		approved[f.addMCQ(t, sampleMCQ("english", fmt.Sprintf("q%d", i)), true)] = true
	}
	f.addMCQ(t, sampleMCQ("english", "pending"), false)

	got, err := f.service.FetchMCQsRandom(ctx, "english", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	seen := map[string]bool{}
	for _, mcq := range got {
		require.True(t, approved[mcq.ID], "unexpected mcq %s", mcq.ID)
		require.False(t, seen[mcq.ID], "duplicate mcq %s", mcq.ID)
		seen[mcq.ID] = true
	}
}

func TestFetchMCQsByIDsSkipsMissingAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addMCQ(t, sampleMCQ("english", "a"), true)
	b := f.addMCQ(t, sampleMCQ("english", "b"), false)

	got, err := f.service.FetchMCQsByIDs(ctx, []string{b, "missing", a})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, b, got[0].ID)
	require.Equal(t, a, got[1].ID)

	empty, err := f.service.FetchMCQsByIDs(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestFetchMCQsByIDsPropagatesBackendErrors(t *testing.T) {
	f := newFixture(t)
	id := f.addMCQ(t, sampleMCQ("english", "a"), true)
	f.store.failGet = true

	_, err := f.service.FetchMCQsByIDs(context.Background(), []string{id})
	require.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestSubmitMCQIsAlwaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	draft := sampleMCQ("english", "submitted")
	draft.Approved = true
	draft.CreatedByUID = "u1"

	id, err := f.service.SubmitMCQ(ctx, draft, "Alice")
	require.NoError(t, err)

	mcq, err := f.service.GetMCQ(ctx, id)
	require.NoError(t, err)
	require.False(t, mcq.Approved)
	require.Equal(t, "Alice", mcq.CreatedByDisplayName)
	require.Equal(t, "u1", mcq.CreatedByUID)

	pending, err := f.service.FetchPendingMCQs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, id, pending[0].ID)

	visible, err := f.service.FetchMCQsSequential(ctx, "english", 10)
	require.NoError(t, err)
	require.Empty(t, visible)
}

func TestApproveIsIdempotentAndDeleteRemoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.addMCQ(t, sampleMCQ("english", "q"), false)

	require.NoError(t, f.service.ApproveMCQ(ctx, id))
	require.NoError(t, f.service.ApproveMCQ(ctx, id))
	mcq, err := f.service.GetMCQ(ctx, id)
	require.NoError(t, err)
	require.True(t, mcq.Approved)
	require.Equal(t, "q", mcq.Question)

	require.NoError(t, f.service.DeleteMCQ(ctx, id))
	_, err = f.service.GetMCQ(ctx, id)
	require.True(t, errors.Is(err, domain.ErrNotFound))

	require.ErrorIs(t, f.service.ApproveMCQ(ctx, id), domain.ErrNotFound)
}

func TestFetchMCQsForAdminNarrowsByCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	withSub := sampleMCQ("english", "s")
	withSub.SubcategoryID = "grammar"
	f.addMCQ(t, withSub, false)
	f.addMCQ(t, sampleMCQ("english", "e"), true)
	f.addMCQ(t, sampleMCQ("computer", "c"), true)

	all, err := f.service.FetchMCQsForAdmin(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	english, err := f.service.FetchMCQsForAdmin(ctx, "english", "")
	require.NoError(t, err)
	require.Len(t, english, 2)

	grammar, err := f.service.FetchMCQsForAdmin(ctx, "english", "grammar")
	require.NoError(t, err)
	require.Len(t, grammar, 1)
	require.False(t, grammar[0].Approved)
}

func TestAnswerMCQCreditsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.addMCQ(t, sampleMCQ("english", "q"), true)
	require.NoError(t, f.service.UpsertUserProfile(ctx, domain.UserProfile{UID: "u1"}))

	wrong, err := f.service.AnswerMCQ(ctx, "u1", domain.AnswerSubmission{MCQID: id, Selected: 0})
	require.NoError(t, err)
	require.False(t, wrong.Correct)
	require.Equal(t, 0, wrong.Awarded)

	first, err := f.service.AnswerMCQ(ctx, "u1", domain.AnswerSubmission{MCQID: id, Selected: 1})
	require.NoError(t, err)
	require.True(t, first.Correct)
	require.Equal(t, 1, first.Awarded)

	second, err := f.service.AnswerMCQ(ctx, "u1", domain.AnswerSubmission{MCQID: id, Selected: 1})
	require.NoError(t, err)
	require.True(t, second.AlreadyAnswered)
	require.Equal(t, 0, second.Awarded)

	profile, err := f.service.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 1, profile.ScoreByCategory["english"])

	_, err = f.service.AnswerMCQ(ctx, "u1", domain.AnswerSubmission{MCQID: id, Selected: 7})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFetchMCQsByCategoryDefaultsToSequential(t *testing.T) {
	f := newFixture(t)
	f.addMCQ(t, sampleMCQ("english", "q"), true)
	got, err := f.service.FetchMCQsByCategory(context.Background(), "english", -1, app.OrderSequential)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestAnswerMCQPendingEarnsNoCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.addMCQ(t, sampleMCQ("english", "own question"), false)
	require.NoError(t, f.service.UpsertUserProfile(ctx, domain.UserProfile{UID: "u1"}))

	_, err := f.service.AnswerMCQ(ctx, "u1", domain.AnswerSubmission{MCQID: id, Selected: 1})
	require.ErrorIs(t, err, domain.ErrNotFound)

	profile, err := f.service.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	require.Zero(t, profile.ScoreByCategory["english"])
	require.False(t, profile.AnsweredMCQs[id])

	_, err = f.service.GetApprovedMCQ(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.service.ApproveMCQ(ctx, id))
	result, err := f.service.AnswerMCQ(ctx, "u1", domain.AnswerSubmission{MCQID: id, Selected: 1})
	require.NoError(t, err)
	require.Equal(t, 1, result.Awarded)
}

func TestFetchMCQsRandomReshufflesEachCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 20; i++ {
		f.addMCQ(t, sampleMCQ("english", fmt.Sprintf("q%d", i)), true)
	}

	orders := map[string]bool{}
	for i := 0; i < 5; i++ {
		got, err := f.service.FetchMCQsRandom(ctx, "english", 20)
		require.NoError(t, err)
		require.Len(t, got, 20)
		key := ""
		for _, mcq := range got {
			key += mcq.ID + ","
		}
		orders[key] = true
	}
	require.GreaterOrEqual(t, len(orders), 2, "random order repeated on every call")
}

func TestCreateMCQRejectsPathSeparatorsInCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, cat := range []string{"grade.9", "a/b"} {
		_, err := f.service.CreateMCQAsAdmin(ctx, sampleMCQ(cat, "q"))
		require.ErrorIs(t, err, domain.ErrInvalidInput, cat)
		_, err = f.service.SubmitMCQ(ctx, sampleMCQ(cat, "q"), "Alice")
		require.ErrorIs(t, err, domain.ErrInvalidInput, cat)
	}
}
