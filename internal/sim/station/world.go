package station

// World is what the engine needs from the host world.
type World interface {
	// IsAnchor reports whether loc holds the anchor block with a heat source directly below.
	IsAnchor(loc Location) bool
	OpenContainer(viewer string, st *Station)
	DropItem(loc Location, s Stack)
	SetAnchorBurning(loc Location, burning bool)
	SpawnEffect(p Point, kind string, count int)
	PlaySound(p Point, kind string, volume, pitch float64)
}

// Effect and sound kinds emitted by the engine.
const (
	EffectFlame = "FLAME"
	EffectLava  = "LAVA"

	SoundCrackle = "BLOCK_BLASTFURNACE_FIRE_CRACKLE"
	SoundBurnout = "BLOCK_REDSTONE_TORCH_BURNOUT"
	SoundBurn    = "ENTITY_GENERIC_BURN"
)

// Restorer loads and deletes persisted stations.
type Restorer interface {
	Restore(loc Location) (*Station, bool, error)
	Delete(loc Location) error
}

// Audit kinds.
const (
	AuditCreated      = "STATION_CREATED"
	AuditRestored     = "STATION_RESTORED"
	AuditBroken       = "STATION_BROKEN"
	AuditRunStarted   = "RUN_STARTED"
	AuditRunCompleted = "RUN_COMPLETED"
	AuditRunOrphaned  = "RUN_ORPHANED"
	AuditRejected     = "START_REJECTED"
	AuditBackup       = "BACKUP"
	AuditBackupFailed = "BACKUP_FAILED"
)

type AuditEntry struct {
	Tick    uint64 `json:"tick"`
	Kind    string `json:"kind"`
	Station string `json:"station,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Count   int    `json:"count,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type Auditor interface {
	Audit(e AuditEntry)
}

type nopAuditor struct{}

func (nopAuditor) Audit(AuditEntry) {}

type multiAuditor []Auditor

func (m multiAuditor) Audit(e AuditEntry) {
	for _, a := range m {
		a.Audit(e)
	}
}

// Auditors fans entries out to every non-nil auditor.
func Auditors(as ...Auditor) Auditor {
	var m multiAuditor
	for _, a := range as {
		if a != nil {
			m = append(m, a)
		}
	}
	switch len(m) {
	case 0:
		return nopAuditor{}
	case 1:
		return m[0]
	}
	return m
}
