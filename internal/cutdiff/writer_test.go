package cutdiff

import (
	"context"
	"errors"
	"testing"

	"github.com/cutlens/cutlens/internal/store"
	"github.com/cutlens/cutlens/internal/timeline"
)

func TestWriteCut(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	cut := seedCut(t, st, baseEDL, DefaultSettings())

	if cut.Code != "CUT_DIFF_TEST" {
		t.Errorf("Code = %q, want CUT_DIFF_TEST", cut.Code)
	}
	if cut.Revision != 1 {
		t.Errorf("Revision = %d, want 1", cut.Revision)
	}
	if cut.Fps != 24 {
		t.Errorf("Fps = %v, want 24", cut.Fps)
	}
	if cut.TimecodeStart != "01:00:00:00" {
		t.Errorf("TimecodeStart = %q, want 01:00:00:00", cut.TimecodeStart)
	}
	if cut.TimecodeEnd != "01:00:16:00" {
		t.Errorf("TimecodeEnd = %q, want 01:00:16:00", cut.TimecodeEnd)
	}

	items, err := st.GetCutItems(ctx, cut.ID)
	if err != nil {
		t.Fatalf("GetCutItems() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	wantItems := []struct {
		code            string
		cutIn, cutOut   int
		editIn, editOut int
		shotCode        string
	}{
		{"clip_1", 1033, 1248, 1, 216, "shot_001"},
		{"clip_2", 1009, 1080, 217, 288, "shot_002"},
		{"clip_3", 1009, 1104, 289, 384, "shot_001"},
	}
	for i, want := range wantItems {
		item := items[i]
		if item.Code != want.code {
			t.Errorf("item %d Code = %q, want %q", i, item.Code, want.code)
		}
		if item.CutItemIn == nil || *item.CutItemIn != want.cutIn {
			t.Errorf("%s CutItemIn = %v, want %d", want.code, item.CutItemIn, want.cutIn)
		}
		if item.CutItemOut == nil || *item.CutItemOut != want.cutOut {
			t.Errorf("%s CutItemOut = %v, want %d", want.code, item.CutItemOut, want.cutOut)
		}
		if item.EditIn == nil || *item.EditIn != want.editIn {
			t.Errorf("%s EditIn = %v, want %d", want.code, item.EditIn, want.editIn)
		}
		if item.EditOut == nil || *item.EditOut != want.editOut {
			t.Errorf("%s EditOut = %v, want %d", want.code, item.EditOut, want.editOut)
		}
		if item.ShotCode != want.shotCode {
			t.Errorf("%s ShotCode = %q, want %q", want.code, item.ShotCode, want.shotCode)
		}
		if item.VersionCode != want.code {
			t.Errorf("%s VersionCode = %q, want %q", want.code, item.VersionCode, want.code)
		}
		if item.VersionID == nil {
			t.Errorf("%s VersionID = nil", want.code)
		}
	}

	shots, err := st.FindShotsByCodes(ctx, []string{"shot_001", "shot_002"})
	if err != nil {
		t.Fatalf("FindShotsByCodes() error = %v", err)
	}
	s1 := shots["shot_001"]
	if s1 == nil {
		t.Fatal("shot_001 not created")
	}
	shotChecks := []struct {
		name string
		got  *int
		want int
	}{
		{"HeadIn", s1.HeadIn, 1001},
		{"CutIn", s1.CutIn, 1009},
		{"CutOut", s1.CutOut, 1248},
		{"TailOut", s1.TailOut, 1256},
		{"CutDuration", s1.CutDuration, 240},
		{"WorkingDuration", s1.WorkingDuration, 255},
		{"CutOrder", s1.CutOrder, 3},
	}
	for _, check := range shotChecks {
		if check.got == nil || *check.got != check.want {
			t.Errorf("shot_001 %s = %v, want %d", check.name, check.got, check.want)
		}
	}
	if _, err := st.FindVersionByCode(ctx, "clip_2"); err != nil {
		t.Errorf("FindVersionByCode(clip_2) error = %v", err)
	}
}

func TestWriteCutRevisions(t *testing.T) {
	st := store.NewMemoryStore()
	first := seedCut(t, st, baseEDL, DefaultSettings())
	second := seedCut(t, st, baseEDL, DefaultSettings())
	if first.Revision != 1 || second.Revision != 2 {
		t.Errorf("revisions = %d, %d, want 1, 2", first.Revision, second.Revision)
	}
}

func TestWriteCutReinstatesShot(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	shot := &store.Shot{Code: "shot_002", Status: "omt"}
	if err := st.CreateShot(ctx, shot); err != nil {
		t.Fatalf("CreateShot() error = %v", err)
	}

	settings := DefaultSettings()
	settings.ReinstateStatus = "ip"
	seedCut(t, st, baseEDL, settings)

	got, err := st.GetShot(ctx, shot.ID)
	if err != nil {
		t.Fatalf("GetShot() error = %v", err)
	}
	if got.Status != "ip" {
		t.Errorf("Status = %q, want ip", got.Status)
	}
}

func TestWriteCutKeepsPreviousStatus(t *testing.T) {
	// The default reinstate setting restores the pre-omission status;
	// without status history that means leaving the status alone.
	ctx := context.Background()
	st := store.NewMemoryStore()
	shot := &store.Shot{Code: "shot_002", Status: "omt"}
	if err := st.CreateShot(ctx, shot); err != nil {
		t.Fatalf("CreateShot() error = %v", err)
	}

	seedCut(t, st, baseEDL, DefaultSettings())

	got, err := st.GetShot(ctx, shot.ID)
	if err != nil {
		t.Fatalf("GetShot() error = %v", err)
	}
	if got.Status != "omt" {
		t.Errorf("Status = %q, want omt", got.Status)
	}
}

func TestReadCutRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	cut := seedCut(t, st, baseEDL, DefaultSettings())

	track, err := ReadCut(ctx, st, cut.ID, discardLogger())
	if err != nil {
		t.Fatalf("ReadCut() error = %v", err)
	}
	if track.Name != "CUT_DIFF_TEST" {
		t.Errorf("Name = %q, want CUT_DIFF_TEST", track.Name)
	}
	if got := track.Start.ToFrames(); got != 86400 {
		t.Errorf("Start = %d, want 86400", got)
	}
	clips := track.Clips()
	if len(clips) != 3 {
		t.Fatalf("len(clips) = %d, want 3", len(clips))
	}
	if got := clips[0].SourceRange.Start.ToFrames(); got != 86424 {
		t.Errorf("clip_1 source in = %d, want 86424", got)
	}
	if got := clips[0].SourceRange.Duration.ToFrames(); got != 216 {
		t.Errorf("clip_1 duration = %d, want 216", got)
	}
	for _, c := range clips {
		if c.Recorded == nil {
			t.Errorf("%s: Recorded = nil", c.Name)
		}
	}
	// The records are contiguous, so clips are the only items.
	if got := len(track.Items); got != 3 {
		t.Errorf("len(Items) = %d, want 3", got)
	}
}

func TestReadCutGap(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	cut := seedCut(t, st, removeEvent(baseEDL, "002"), DefaultSettings())

	track, err := ReadCut(ctx, st, cut.ID, discardLogger())
	if err != nil {
		t.Fatalf("ReadCut() error = %v", err)
	}
	if got := len(track.Items); got != 3 {
		t.Fatalf("len(Items) = %d, want 3", got)
	}
	gap, ok := track.Items[1].(*timeline.Gap)
	if !ok {
		t.Fatalf("Items[1] is %T, want *timeline.Gap", track.Items[1])
	}
	if got := gap.TimeSpan.Duration.ToFrames(); got != 72 {
		t.Errorf("gap duration = %d, want 72", got)
	}
}

func TestReadCutOverlap(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	cut := &store.Cut{Code: "broken", Fps: 24, Revision: 1, TimecodeStart: "01:00:00:00"}
	if err := st.CreateCut(ctx, cut); err != nil {
		t.Fatalf("CreateCut() error = %v", err)
	}
	items := []*store.CutItem{
		{
			CutID: cut.ID, Code: "a", CutOrder: 1,
			TimecodeCutItemIn: "00:00:01:00", TimecodeCutItemOut: "00:00:02:00",
			TimecodeEditIn: "01:00:00:00", TimecodeEditOut: "01:00:01:00",
		},
		{
			CutID: cut.ID, Code: "b", CutOrder: 2,
			TimecodeCutItemIn: "00:00:01:00", TimecodeCutItemOut: "00:00:02:00",
			TimecodeEditIn: "01:00:00:12", TimecodeEditOut: "01:00:01:12",
		},
	}
	if err := st.CreateCutItems(ctx, items); err != nil {
		t.Fatalf("CreateCutItems() error = %v", err)
	}

	_, err := ReadCut(ctx, st, cut.ID, discardLogger())
	if !errors.Is(err, ErrOverlappingItems) {
		t.Errorf("ReadCut() error = %v, want ErrOverlappingItems", err)
	}
}
