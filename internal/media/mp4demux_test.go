package media

import (
	"testing"

	mp4 "github.com/Eyevinn/mp4ff/mp4"
)

// buildStbl assembles a minimal sample table: 4 samples of 10/20/30/40 bytes
// in two chunks of two, 1000-tick durations, sync samples 1 and 3.
func buildStbl() *mp4.StblBox {
	stbl := &mp4.StblBox{}
	stbl.AddChild(&mp4.SttsBox{
		SampleCount:     []uint32{4},
		SampleTimeDelta: []uint32{1000},
	})
	stbl.AddChild(&mp4.StszBox{
		SampleNumber: 4,
		SampleSize:   []uint32{10, 20, 30, 40},
	})
	stbl.AddChild(&mp4.StscBox{
		Entries:             []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 2, FirstSampleNr: 1}},
		SampleDescriptionID: []uint32{1},
	})
	stbl.AddChild(&mp4.StcoBox{ChunkOffset: []uint32{100, 300}})
	stbl.AddChild(&mp4.StssBox{SampleNumber: []uint32{1, 3}})
	return stbl
}

func TestProgressiveSamplesOffsets(t *testing.T) {
	samples, err := progressiveSamples(buildStbl())
	if err != nil {
		t.Fatalf("progressiveSamples: %v", err)
	}
	if len(samples) != 4 {
		t.Fatalf("count: got %d, want 4", len(samples))
	}

	wantOffsets := []uint64{100, 110, 300, 330}
	wantDec := []uint64{0, 1000, 2000, 3000}
	wantSync := []bool{true, false, true, false}
	for i := range samples {
		if samples[i].offset != wantOffsets[i] {
			t.Errorf("sample %d offset: got %d, want %d", i, samples[i].offset, wantOffsets[i])
		}
		if samples[i].decTime != wantDec[i] {
			t.Errorf("sample %d decTime: got %d, want %d", i, samples[i].decTime, wantDec[i])
		}
		if samples[i].sync != wantSync[i] {
			t.Errorf("sample %d sync: got %v, want %v", i, samples[i].sync, wantSync[i])
		}
		if samples[i].dur != 1000 {
			t.Errorf("sample %d dur: got %d", i, samples[i].dur)
		}
	}
}

func TestProgressiveSamplesNoSyncTable(t *testing.T) {
	stbl := &mp4.StblBox{}
	stbl.AddChild(&mp4.SttsBox{SampleCount: []uint32{2}, SampleTimeDelta: []uint32{1024}})
	stbl.AddChild(&mp4.StszBox{SampleNumber: 2, SampleUniformSize: 64})
	stbl.AddChild(&mp4.StscBox{
		Entries:             []mp4.StscEntry{{FirstChunk: 1, SamplesPerChunk: 2, FirstSampleNr: 1}},
		SampleDescriptionID: []uint32{1},
	})
	stbl.AddChild(&mp4.StcoBox{ChunkOffset: []uint32{48}})

	samples, err := progressiveSamples(stbl)
	if err != nil {
		t.Fatalf("progressiveSamples: %v", err)
	}
	for i := range samples {
		if !samples[i].sync {
			t.Errorf("sample %d: absent stss must mean all-sync", i)
		}
		if samples[i].size != 64 {
			t.Errorf("sample %d size: got %d, want uniform 64", i, samples[i].size)
		}
	}
	if samples[1].offset != 112 {
		t.Errorf("second sample offset: got %d, want 112", samples[1].offset)
	}
}

func TestHandlerMediaType(t *testing.T) {
	cases := map[string]MediaType{
		"vide": TypeVideo,
		"soun": TypeAudio,
		"subt": TypeSubtitle,
		"text": TypeSubtitle,
		"meta": TypeData,
	}
	for h, want := range cases {
		if got := handlerMediaType(h); got != want {
			t.Errorf("handlerMediaType(%q): got %s, want %s", h, got, want)
		}
	}
}
