package cutdiff

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/cutlens/cutlens/internal/store"
)

// seedCut parses the EDL at 24 fps and persists it as a cut for the
// test project, creating the referenced shots along the way.
func seedCut(t *testing.T, st store.Store, text string, settings *Settings) *store.Cut {
	t.Helper()
	track := parseEDL(t, text, 24)
	w := NewWriter(st, settings, discardLogger())
	cut, err := w.WriteCut(context.Background(), track, "Project", 1, "seeded cut")
	if err != nil {
		t.Fatalf("WriteCut() error = %v", err)
	}
	return cut
}

func compareEDL(t *testing.T, st store.Store, text string, oldCutID int64, settings *Settings) *TrackDiff {
	t.Helper()
	track := parseEDL(t, text, 24)
	td, err := Compare(context.Background(), st, track, oldCutID, settings, discardLogger())
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	return td
}

func soleEntry(t *testing.T, td *TrackDiff, shot string) *Entry {
	t.Helper()
	group := td.Group(shot)
	if group == nil {
		t.Fatalf("no group for %q", shot)
	}
	entries := group.Entries()
	if len(entries) != 1 {
		t.Fatalf("group %q has %d entries, want 1", shot, len(entries))
	}
	return entries[0]
}

func TestDiffWithoutOldCut(t *testing.T) {
	st := store.NewMemoryStore()
	td := compareEDL(t, st, baseEDL, 0, DefaultSettings())

	for _, group := range td.Groups() {
		for _, e := range group.Entries() {
			if e.DiffType() != New {
				t.Errorf("%s: DiffType = %s, want New", e.UniqueName, e.DiffType())
			}
			if e.Old() != nil {
				t.Errorf("%s: Old() = %v, want nil", e.UniqueName, e.Old())
			}
		}
	}
	// New counts once per shot no matter how many clips it has.
	if got := td.Count(New); got != 2 {
		t.Errorf("Count(New) = %d, want 2", got)
	}
	if got := td.ActiveCount(); got != 3 {
		t.Errorf("ActiveCount = %d, want 3", got)
	}
	if got := td.GroupNames(); !reflect.DeepEqual(got, []string{"shot_001", "shot_002"}) {
		t.Errorf("GroupNames = %v", got)
	}
}

func TestDiffTracksWithShots(t *testing.T) {
	track := parseEDL(t, baseEDL, 24)
	shots := map[string]*store.Shot{
		"shot_001": {ID: 7, Code: "shot_001", Status: "ip"},
	}
	td, err := DiffTracksWithShots(track, nil, shots, DefaultSettings(), discardLogger())
	if err != nil {
		t.Fatalf("DiffTracksWithShots() error = %v", err)
	}

	// shot_001 is a known shot with no recorded clips; shot_002 was
	// never linked at all.
	for _, e := range td.Group("shot_001").Entries() {
		if e.DiffType() != NewInCut {
			t.Errorf("%s: DiffType = %s, want New In Cut", e.UniqueName, e.DiffType())
		}
	}
	if e := soleEntry(t, td, "shot_002"); e.DiffType() != New {
		t.Errorf("shot_002: DiffType = %s, want New", e.DiffType())
	}
}

func TestDiffIdentity(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	td := compareEDL(t, st, baseEDL, cut.ID, settings)

	for _, group := range td.Groups() {
		for _, e := range group.Entries() {
			if e.DiffType() != NoChange {
				t.Errorf("%s: DiffType = %s, want No Change (reasons %v)",
					e.UniqueName, e.DiffType(), e.Reasons())
			}
			if e.Old() == nil {
				t.Errorf("%s: no old counterpart", e.UniqueName)
			}
			if len(e.Reasons()) != 0 {
				t.Errorf("%s: Reasons = %v, want none", e.UniqueName, e.Reasons())
			}
		}
	}
	want := map[DiffType]int{NoChange: 3}
	if got := td.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
	if got, want := td.ActiveCount(), 3; got != want {
		t.Errorf("ActiveCount = %d, want %d", got, want)
	}
	if got, want := td.TotalCount(), 3; got != want {
		t.Errorf("TotalCount = %d, want %d", got, want)
	}
}

func TestDiffIdentityRepeatable(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	first := compareEDL(t, st, baseEDL, cut.ID, settings)
	second := compareEDL(t, st, baseEDL, cut.ID, settings)
	if !reflect.DeepEqual(first.Counts(), second.Counts()) {
		t.Errorf("counts differ between runs: %v vs %v", first.Counts(), second.Counts())
	}
}

func TestDiffHeadExtended(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	// clip_2's source in moves 7 frames later, the cut out stays put.
	shifted := strings.Replace(baseEDL, "01:00:02:00 01:00:05:00", "01:00:02:07 01:00:05:00", 1)
	td := compareEDL(t, st, shifted, cut.ID, settings)

	e := soleEntry(t, td, "shot_002")
	if e.DiffType() != CutChange {
		t.Fatalf("DiffType = %s, want Cut Change", e.DiffType())
	}
	if got := e.CutIn().ToFrames(); got != 1016 {
		t.Errorf("CutIn = %d, want 1016", got)
	}
	if oldCutIn, ok := e.OldCutIn(); !ok || oldCutIn.ToFrames() != 1009 {
		t.Errorf("OldCutIn = %v, %v, want 1009", oldCutIn, ok)
	}
	want := []string{"Head extended 7 frs"}
	if got := e.Reasons(); !reflect.DeepEqual(got, want) {
		t.Errorf("Reasons = %v, want %v", got, want)
	}
	if got := td.Count(CutChange); got != 1 {
		t.Errorf("Count(CutChange) = %d, want 1", got)
	}
	if got := td.Count(NoChange); got != 2 {
		t.Errorf("Count(NoChange) = %d, want 2", got)
	}
}

func TestDiffTailTrimmed(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	// clip_2 loses a second at the tail.
	shortened := strings.Replace(baseEDL, "01:00:02:00 01:00:05:00", "01:00:02:00 01:00:04:00", 1)
	td := compareEDL(t, st, shortened, cut.ID, settings)

	e := soleEntry(t, td, "shot_002")
	if e.DiffType() != CutChange {
		t.Fatalf("DiffType = %s, want Cut Change", e.DiffType())
	}
	want := []string{"Tail extended 24 frs"}
	if got := e.Reasons(); !reflect.DeepEqual(got, want) {
		t.Errorf("Reasons = %v, want %v", got, want)
	}
}

func TestDiffOmittedShot(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	withoutShot002 := removeEvent(baseEDL, "002")
	td := compareEDL(t, st, withoutShot002, cut.ID, settings)

	e := soleEntry(t, td, "shot_002")
	if e.DiffType() != Omitted {
		t.Errorf("DiffType = %s, want Omitted", e.DiffType())
	}
	if !e.AsOmitted() {
		t.Error("AsOmitted = false, want true")
	}
	if e.Current() != nil {
		t.Errorf("Current() = %v, want nil", e.Current())
	}
	// The omitted shot keeps reporting the old cut values.
	if got := td.Group("shot_002").CutIn().ToFrames(); got != 1009 {
		t.Errorf("group CutIn = %d, want 1009", got)
	}

	want := map[DiffType]int{NoChange: 2, Omitted: 1}
	if got := td.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
	if got := td.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := td.TotalCount(); got != 3 {
		t.Errorf("TotalCount = %d, want 3", got)
	}
}

func TestDiffOmittedInCut(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	// clip_3 disappears but shot_001 stays in the cut through clip_1.
	withoutClip3 := removeEvent(baseEDL, "003")
	td := compareEDL(t, st, withoutClip3, cut.ID, settings)

	group := td.Group("shot_001")
	var omitted *Entry
	for _, e := range group.Entries() {
		if e.AsOmitted() {
			omitted = e
		}
	}
	if omitted == nil {
		t.Fatal("no omitted entry for shot_001")
	}
	if omitted.DiffType() != OmittedInCut {
		t.Errorf("DiffType = %s, want Omitted In Cut", omitted.DiffType())
	}
	if !omitted.Repeated() {
		t.Error("Repeated = false, want true")
	}

	// Per-entry counting collapses the in-cut omission into Cut Change.
	want := map[DiffType]int{NoChange: 2, CutChange: 1}
	if got := td.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
	if got := group.ShotDiffType(); got != CutChange {
		t.Errorf("ShotDiffType = %s, want Cut Change", got)
	}
}

func TestDiffNewInCut(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	extended := baseEDL + `004  ABC0400  V  C  01:00:20:00 01:00:22:00 01:00:16:00 01:00:18:00
* FROM CLIP NAME: clip_4
* COMMENT: shot_001
`
	td := compareEDL(t, st, extended, cut.ID, settings)

	group := td.Group("shot_001")
	var added *Entry
	for _, e := range group.Entries() {
		if e.UniqueName == "clip_4" {
			added = e
		}
	}
	if added == nil {
		t.Fatal("clip_4 entry not found")
	}
	if added.DiffType() != NewInCut {
		t.Errorf("DiffType = %s, want New In Cut", added.DiffType())
	}
	if added.Old() != nil {
		t.Errorf("Old() = %v, want nil", added.Old())
	}
	want := map[DiffType]int{NoChange: 3, CutChange: 1}
	if got := td.Counts(); !reflect.DeepEqual(got, want) {
		t.Errorf("Counts = %v, want %v", got, want)
	}
	if got := td.ActiveCount(); got != 4 {
		t.Errorf("ActiveCount = %d, want 4", got)
	}
}

func TestDiffReinstated(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	shots, err := st.FindShotsByCodes(context.Background(), []string{"shot_002"})
	if err != nil {
		t.Fatalf("FindShotsByCodes() error = %v", err)
	}
	omt := "omt"
	if err := st.UpdateShot(context.Background(), shots["shot_002"].ID, &store.ShotUpdate{Status: &omt}); err != nil {
		t.Fatalf("UpdateShot() error = %v", err)
	}

	td := compareEDL(t, st, baseEDL, cut.ID, settings)
	e := soleEntry(t, td, "shot_002")
	if e.DiffType() != Reinstated {
		t.Errorf("DiffType = %s, want Reinstated", e.DiffType())
	}
	if got := td.Count(Reinstated); got != 1 {
		t.Errorf("Count(Reinstated) = %d, want 1", got)
	}
}

func TestDiffRescan(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	// Recorded media for shot_002 now starts after the cut in, the
	// head handle cannot be filled.
	shots, err := st.FindShotsByCodes(context.Background(), []string{"shot_002"})
	if err != nil {
		t.Fatalf("FindShotsByCodes() error = %v", err)
	}
	if err := st.UpdateShot(context.Background(), shots["shot_002"].ID, &store.ShotUpdate{
		HeadIn: store.IntPtr(1050),
	}); err != nil {
		t.Fatalf("UpdateShot() error = %v", err)
	}

	td := compareEDL(t, st, baseEDL, cut.ID, settings)
	e := soleEntry(t, td, "shot_002")
	if e.DiffType() != Rescan {
		t.Errorf("DiffType = %s, want Needs Rescan", e.DiffType())
	}
	if got := e.HeadDuration().ToFrames(); got >= 0 {
		t.Errorf("HeadDuration = %d, want negative", got)
	}
	if got := td.Count(Rescan); got != 1 {
		t.Errorf("Count(Rescan) = %d, want 1", got)
	}
}

func TestDiffNoLink(t *testing.T) {
	st := store.NewMemoryStore()
	text := `TITLE: NO_LINK

001  ABC0500  V  C  01:00:00:00 01:00:01:00 01:00:00:00 01:00:01:00
`
	td := compareEDL(t, st, text, 0, DefaultSettings())

	groups := td.Groups()
	if len(groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(groups))
	}
	e := groups[0].Entries()[0]
	if e.DiffType() != NoLink {
		t.Errorf("DiffType = %s, want No Link", e.DiffType())
	}
	if got := td.Count(NoLink); got != 1 {
		t.Errorf("Count(NoLink) = %d, want 1", got)
	}
}

func TestDiffMatchingIsExclusive(t *testing.T) {
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, baseEDL, settings)

	// shot_002 appears twice in the new cut; the single old clip can
	// serve only one of them.
	doubled := baseEDL + `004  ABC0200  V  C  01:00:02:00 01:00:05:00 01:00:16:00 01:00:19:00
* FROM CLIP NAME: clip_2
* COMMENT: shot_002
`
	td := compareEDL(t, st, doubled, cut.ID, settings)

	group := td.Group("shot_002")
	entries := group.CurrentEntries()
	if len(entries) != 2 {
		t.Fatalf("shot_002 has %d current entries, want 2", len(entries))
	}
	matched := 0
	for _, e := range entries {
		if !e.Repeated() {
			t.Errorf("%s: Repeated = false, want true", e.UniqueName)
		}
		if e.Old() != nil {
			matched++
		} else if e.DiffType() != NewInCut {
			t.Errorf("%s: DiffType = %s, want New In Cut", e.UniqueName, e.DiffType())
		}
	}
	if matched != 1 {
		t.Errorf("matched entries = %d, want 1", matched)
	}
}

func TestDiffMatchingPrefersVersion(t *testing.T) {
	oldCut := `TITLE: VERSIONS

001  ABC0100  V  C  01:00:01:00 01:00:02:00 01:00:00:00 01:00:01:00
* FROM CLIP NAME: shot_001_v001
* COMMENT: shot_001
002  ABC0100  V  C  01:00:05:00 01:00:06:00 01:00:01:00 01:00:02:00
* FROM CLIP NAME: shot_001_v002
* COMMENT: shot_001
`
	// Same two clips, opposite track order.
	newCut := `TITLE: VERSIONS

001  ABC0100  V  C  01:00:05:00 01:00:06:00 01:00:00:00 01:00:01:00
* FROM CLIP NAME: shot_001_v002
* COMMENT: shot_001
002  ABC0100  V  C  01:00:01:00 01:00:02:00 01:00:01:00 01:00:02:00
* FROM CLIP NAME: shot_001_v001
* COMMENT: shot_001
`
	st := store.NewMemoryStore()
	settings := DefaultSettings()
	cut := seedCut(t, st, oldCut, settings)

	td := compareEDL(t, st, newCut, cut.ID, settings)
	for _, e := range td.Group("shot_001").CurrentEntries() {
		old := e.Old()
		if old == nil {
			t.Errorf("%s: no old counterpart", e.UniqueName)
			continue
		}
		if old.Recorded.VersionCode != e.Name {
			t.Errorf("%s matched against version %q", e.Name, old.Recorded.VersionCode)
		}
	}
}

func TestEntryOmittedRejectsOldClip(t *testing.T) {
	clips := wrapTrack(t, parseEDL(t, baseEDL, 24), DefaultSettings())
	e := NewOmittedEntry(clips["clip_2"])
	err := e.SetOldClip(clips["clip_1"])
	if !errors.Is(err, ErrOmittedOldClip) {
		t.Errorf("SetOldClip() error = %v, want ErrOmittedOldClip", err)
	}
}

// removeEvent strips one event, with its annotation lines, from an EDL.
func removeEvent(text, number string) string {
	var out []string
	skipping := false
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, number+"  "):
			skipping = true
			continue
		case skipping && (strings.HasPrefix(line, "*") || strings.HasPrefix(line, "M2")):
			continue
		default:
			skipping = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
