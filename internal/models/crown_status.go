package models

import "time"

// CrownStatusID is the _id of the one crown status document.
const CrownStatusID = "current"

// AssignedBy values recorded on the crown status.
const (
	AssignedByNightly = "nightly"
	AssignedByManual  = "manual"
)

// CrownStatus is the singleton record describing the current titleholder and
// the settlement state. The two lock fields are both set or both nil.
type CrownStatus struct {
	ID string `bson:"_id" json:"id"`

	ActiveUID             string     `bson:"activeUid,omitempty" json:"activeUid,omitempty"`
	ActivePriceCents      int64      `bson:"activePriceCents,omitempty" json:"activePriceCents,omitempty"`
	ActivePaymentIntentID string     `bson:"activePaymentIntentId,omitempty" json:"activePaymentIntentId,omitempty"`
	ActiveDateKey         string     `bson:"activeDateKey,omitempty" json:"activeDateKey,omitempty"`
	ActiveSince           *time.Time `bson:"activeSince,omitempty" json:"activeSince,omitempty"`
	AssignedBy            string     `bson:"assignedBy,omitempty" json:"assignedBy,omitempty"`

	// Public snapshot of the winner taken at win time.
	ChampionName     string `bson:"currentChampionName,omitempty" json:"currentChampionName,omitempty"`
	ChampionBio      string `bson:"currentChampionBio,omitempty" json:"currentChampionBio,omitempty"`
	ChampionPhotoURL string `bson:"currentChampionPhotoUrl,omitempty" json:"currentChampionPhotoUrl,omitempty"`

	LastSettledForDate string `bson:"lastSettledForDate,omitempty" json:"lastSettledForDate,omitempty"`

	SettlementInProgressAt      *time.Time `bson:"settlementInProgressAt" json:"settlementInProgressAt"`
	SettlementInProgressForDate *string    `bson:"settlementInProgressForDate" json:"settlementInProgressForDate"`

	LastAttemptForDate string `bson:"lastAttemptForDate,omitempty" json:"lastAttemptForDate,omitempty"`
	LastAttemptResult  string `bson:"lastAttemptResult,omitempty" json:"lastAttemptResult,omitempty"`

	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// LockHeld reports whether an in-progress settlement marker is present.
func (s *CrownStatus) LockHeld() bool {
	return s.SettlementInProgressAt != nil
}

// LockAge returns how long the current lock has been held.
func (s *CrownStatus) LockAge(now time.Time) time.Duration {
	if s.SettlementInProgressAt == nil {
		return 0
	}
	return now.Sub(*s.SettlementInProgressAt)
}

// CrownWinner is the winner portion of a crown status write.
type CrownWinner struct {
	UID              string
	PriceCents       int64
	PaymentIntentID  string
	DateKey          string
	Since            time.Time
	AssignedBy       string
	ChampionName     string
	ChampionBio      string
	ChampionPhotoURL string
}

// CrownLock marks an in-progress settlement attempt.
type CrownLock struct {
	Since   time.Time
	DateKey string
}

// CrownAttempt records the disposition of an attempt that produced no winner.
type CrownAttempt struct {
	DateKey string
	Result  string
}

// CrownStatusUpdate is a merge write onto the crown status. Nil parts are
// left untouched.
type CrownStatusUpdate struct {
	Winner      *CrownWinner
	Lock        *CrownLock
	ClearLock   bool
	LastAttempt *CrownAttempt
}

// Apply merges the update into s at time now.
func (s *CrownStatus) Apply(u *CrownStatusUpdate, now time.Time) {
	if w := u.Winner; w != nil {
		since := w.Since
		s.ActiveUID = w.UID
		s.ActivePriceCents = w.PriceCents
		s.ActivePaymentIntentID = w.PaymentIntentID
		s.ActiveDateKey = w.DateKey
		s.ActiveSince = &since
		s.AssignedBy = w.AssignedBy
		s.ChampionName = w.ChampionName
		s.ChampionBio = w.ChampionBio
		s.ChampionPhotoURL = w.ChampionPhotoURL
		s.LastSettledForDate = w.DateKey
	}
	if u.ClearLock {
		s.SettlementInProgressAt = nil
		s.SettlementInProgressForDate = nil
	}
	if l := u.Lock; l != nil {
		since, dateKey := l.Since, l.DateKey
		s.SettlementInProgressAt = &since
		s.SettlementInProgressForDate = &dateKey
	}
	if a := u.LastAttempt; a != nil {
		s.LastAttemptForDate = a.DateKey
		s.LastAttemptResult = a.Result
	}
	s.UpdatedAt = now
}

// PublicCrown is the public-facing view of the titleholder. It is built only
// from the crown status snapshot fields.
type PublicCrown struct {
	UID        string     `json:"uid"`
	Name       string     `json:"name"`
	Bio        string     `json:"bio"`
	PhotoURL   string     `json:"photoUrl"`
	PriceCents int64      `json:"priceCents"`
	DateKey    string     `json:"dateKey"`
	Since      *time.Time `json:"since,omitempty"`
}

// ChampionView is a name/bio/photo triple shown on the admin dashboard.
type ChampionView struct {
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	PhotoURL string `json:"photoUrl"`
}

// CrownUserView is the safe subset of the live candidate profile.
type CrownUserView struct {
	UID      string `json:"uid"`
	FullName string `json:"fullName,omitempty"`
	Email    string `json:"email,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// AdminCrownView is what operators see for the current crown: the raw status,
// the live user record and three champion views (snapshot, live, resolved).
type AdminCrownView struct {
	Status           *CrownStatus   `json:"status"`
	User             *CrownUserView `json:"user"`
	SnapshotChampion ChampionView   `json:"snapshotChampion"`
	UserChampion     ChampionView   `json:"userChampion"`
	ResolvedChampion ChampionView   `json:"resolvedChampion"`
}
