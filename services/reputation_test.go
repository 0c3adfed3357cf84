package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/qaforum/models"
	"github.com/cppla/qaforum/testutil"
	"github.com/cppla/qaforum/utils"
)

func TestPointsFor(t *testing.T) {
	assert.Equal(t, 10, PointsFor(KindPostUpvoted))
	assert.Equal(t, -2, PointsFor(KindPostDownvoted))
	assert.Equal(t, 5, PointsFor(KindCommentUpvoted))
	assert.Equal(t, -2, PointsFor(KindCommentDownvoted))
	assert.Equal(t, 15, PointsFor(KindAnswerAccepted))
	assert.Equal(t, 2, PointsFor(KindAcceptedAnswer))
	assert.Equal(t, 0, PointsFor("SOMETHING_ELSE"))
}

func TestLevelForBoundaries(t *testing.T) {
	cases := map[int]models.Level{
		0:    models.LevelNewcomer,
		49:   models.LevelNewcomer,
		50:   models.LevelMember,
		199:  models.LevelMember,
		200:  models.LevelContributor,
		999:  models.LevelContributor,
		1000: models.LevelTrusted,
		4999: models.LevelTrusted,
		5000: models.LevelExpert,
		9000: models.LevelExpert,
	}
	for rep, want := range cases {
		assert.Equal(t, want, LevelFor(rep), "reputation %d", rep)
	}
}

func TestApplyDeltaPersistsLevel(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "alice")
	testutil.SetReputation(t, db, u.ID, 45)

	var change *ReputationChange
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		change, err = ApplyDelta(tx, u.ID, 10)
		return err
	}))

	assert.Equal(t, 55, change.Reputation)
	assert.Equal(t, models.LevelMember, change.Level)
	assert.True(t, change.LevelChanged())

	got := testutil.Reload[models.User](t, db, u.ID)
	assert.Equal(t, 55, got.Reputation)
	assert.Equal(t, models.LevelMember, got.Level)
}

func TestApplyDeltaClampsAtZero(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "bob")
	testutil.SetReputation(t, db, u.ID, 1)

	var change *ReputationChange
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		change, err = ApplyDelta(tx, u.ID, -2)
		return err
	}))
	assert.Equal(t, 0, change.Reputation)
	assert.False(t, change.LevelChanged())
	assert.Equal(t, 0, testutil.Reload[models.User](t, db, u.ID).Reputation)
}

func TestApplyDeltaMissingUser(t *testing.T) {
	db := testutil.NewDB(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := ApplyDelta(tx, 999, 10)
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, utils.ErrNotFound))
}
