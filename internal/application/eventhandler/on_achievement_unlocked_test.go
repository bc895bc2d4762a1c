package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/browo-hub/progression-engine/internal/domain/shared"
)

// recordingNotifier запоминает все отправленные уведомления.
type recordingNotifier struct {
	calls []notification
	err   error
}

type notification struct {
	userID  string
	kind    string
	message string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, kind, message string) error {
	n.calls = append(n.calls, notification{userID: userID, kind: kind, message: message})
	return n.err
}

func TestNotificationRelay_LevelUp(t *testing.T) {
	notifier := &recordingNotifier{}
	relay := NewNotificationRelay(notifier, nil)

	err := relay.Handle(shared.NewLevelUpEvent("user-1", "", 1, 2, 100))

	assert.NoError(t, err)
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, "user-1", notifier.calls[0].userID)
	assert.Equal(t, "level_up", notifier.calls[0].kind)
	assert.Equal(t, "Du hast Level 2 erreicht!", notifier.calls[0].message)
}

func TestNotificationRelay_SkillLevelUp(t *testing.T) {
	notifier := &recordingNotifier{}
	relay := NewNotificationRelay(notifier, nil)

	err := relay.Handle(shared.NewLevelUpEvent("user-1", "knowledge", 2, 3, 250))

	assert.NoError(t, err)
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, "skill_level_up", notifier.calls[0].kind)
	assert.Equal(t, "Dein Skill knowledge hat Level 3 erreicht!", notifier.calls[0].message)
}

func TestNotificationRelay_AchievementUnlocked(t *testing.T) {
	notifier := &recordingNotifier{}
	relay := NewNotificationRelay(notifier, nil)

	err := relay.Handle(shared.NewAchievementUnlockedEvent("user-1", "first_training", "Erste Schritte", "common"))

	assert.NoError(t, err)
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, "achievement_unlocked", notifier.calls[0].kind)
	assert.Equal(t, "Achievement freigeschaltet: Erste Schritte", notifier.calls[0].message)
}

func TestNotificationRelay_TitleGranted(t *testing.T) {
	notifier := &recordingNotifier{}
	relay := NewNotificationRelay(notifier, nil)

	err := relay.Handle(shared.NewTitleGrantedEvent("user-1", "training_master", "Schulmeister"))

	assert.NoError(t, err)
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, "title_granted", notifier.calls[0].kind)
	assert.Equal(t, "Neuer Titel: Schulmeister", notifier.calls[0].message)
}

func TestNotificationRelay_StreakRecordOnly(t *testing.T) {
	notifier := &recordingNotifier{}
	relay := NewNotificationRelay(notifier, nil)

	// Extension without a new record stays silent.
	assert.NoError(t, relay.Handle(shared.NewStreakExtendedEvent("user-1", 4, 10, false)))
	assert.Empty(t, notifier.calls)

	// A one-day "record" is every user's first day, not worth a push.
	assert.NoError(t, relay.Handle(shared.NewStreakExtendedEvent("user-1", 1, 1, true)))
	assert.Empty(t, notifier.calls)

	assert.NoError(t, relay.Handle(shared.NewStreakExtendedEvent("user-1", 8, 8, true)))
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, "streak_record", notifier.calls[0].kind)
	assert.Equal(t, "Neuer Streak-Rekord: 8 Tage!", notifier.calls[0].message)
}

func TestNotificationRelay_StreakBrokenThreshold(t *testing.T) {
	notifier := &recordingNotifier{}
	relay := NewNotificationRelay(notifier, nil)

	// Losing a 2-day streak is not notification-worthy.
	assert.NoError(t, relay.Handle(shared.NewStreakBrokenEvent("user-1", 2, 3)))
	assert.Empty(t, notifier.calls)

	assert.NoError(t, relay.Handle(shared.NewStreakBrokenEvent("user-1", 7, 2)))
	assert.Len(t, notifier.calls, 1)
	assert.Equal(t, "streak_broken", notifier.calls[0].kind)
	assert.Equal(t, "Dein 7-Tage-Streak ist gerissen. Heute neu starten!", notifier.calls[0].message)
}

func TestNotificationRelay_IgnoresOtherEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	relay := NewNotificationRelay(notifier, nil)

	err := relay.Handle(shared.NewXPGrantedEvent("user-1", "evt-1", "knowledge", 50, 50, "training_completed", ""))

	assert.NoError(t, err)
	assert.Empty(t, notifier.calls)
}

func TestNotificationRelay_DeliveryFailureSwallowed(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("push gateway down")}
	relay := NewNotificationRelay(notifier, nil)

	err := relay.Handle(shared.NewLevelUpEvent("user-1", "", 1, 2, 100))

	assert.NoError(t, err)
	assert.Len(t, notifier.calls, 1)
}
