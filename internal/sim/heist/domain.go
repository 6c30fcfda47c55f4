package heist

import (
	"encoding/gob"
	"encoding/json"
	"fmt"

	"rivet.ai/internal/sim/encoding"
	"rivet.ai/internal/sim/encoding/digestcodec"
	"rivet.ai/internal/sim/kernel/state"
)

func init() {
	gob.RegisterName("rivet.heist.domain", &Domain{})
	gob.RegisterName("rivet.heist.config", &Config{})
}

// Domain is the heist-wide state outside entities.
type Domain struct {
	Heat      int `json:"heat"`
	HeatLevel int `json:"heat_level"`
	Spotted   int `json:"spotted"`

	// Paused and PauseReason last one tick.
	Paused      bool   `json:"paused"`
	PauseReason string `json:"pause_reason,omitempty"`

	LossReason string         `json:"loss_reason,omitempty"`
	Cooldowns  map[string]int `json:"cooldowns"`
	Noise      Overlay        `json:"noise"`
}

func (d *Domain) CloneDomain() state.Domain {
	out := *d
	out.Cooldowns = make(map[string]int, len(d.Cooldowns))
	for k, v := range d.Cooldowns {
		out.Cooldowns[k] = v
	}
	out.Noise = d.Noise.Clone()
	return &out
}

// DigestDomain streams the domain into the state digest.
func (d *Domain) DigestDomain(w digestcodec.Writer, tmp *[8]byte) {
	digestcodec.WriteI64(w, tmp, int64(d.Heat))
	digestcodec.WriteI64(w, tmp, int64(d.HeatLevel))
	digestcodec.WriteI64(w, tmp, int64(d.Spotted))
	w.Write([]byte{digestcodec.BoolByte(d.Paused)})
	digestcodec.WriteString(w, tmp, d.PauseReason)
	digestcodec.WriteString(w, tmp, d.LossReason)
	digestcodec.WriteSortedNonZeroIntMap(w, tmp, d.Cooldowns)
	digestcodec.WriteU64(w, tmp, uint64(d.Noise.Width))
	digestcodec.WriteU64(w, tmp, uint64(d.Noise.Height))
	digestcodec.WriteString(w, tmp, encoding.EncodeRLE(d.Noise.Cells))
}

func domainOf(s *state.State) *Domain {
	d, _ := s.Domain.(*Domain)
	return d
}

// Overlay is a per-cell numeric buffer over the grid.
type Overlay struct {
	Width  int
	Height int
	Cells  []uint16
}

func NewOverlay(w, h int) Overlay {
	return Overlay{Width: w, Height: h, Cells: make([]uint16, w*h)}
}

func (o Overlay) Clone() Overlay {
	o.Cells = append([]uint16(nil), o.Cells...)
	return o
}

func (o Overlay) index(at Vec) (int, bool) {
	x, y := at[0], at[1]
	if x < 0 || y < 0 || x >= o.Width || y >= o.Height {
		return 0, false
	}
	return y*o.Width + x, true
}

func (o Overlay) At(at Vec) uint16 {
	if i, ok := o.index(at); ok {
		return o.Cells[i]
	}
	return 0
}

// Add raises a cell, saturating at the uint16 ceiling. Out of range cells
// are ignored.
func (o Overlay) Add(at Vec, v int) {
	i, ok := o.index(at)
	if !ok || v <= 0 {
		return
	}
	n := int(o.Cells[i]) + v
	if n > 0xFFFF {
		n = 0xFFFF
	}
	o.Cells[i] = uint16(n)
}

// Decay lowers every non-zero cell by one.
func (o Overlay) Decay() {
	for i, c := range o.Cells {
		if c > 0 {
			o.Cells[i] = c - 1
		}
	}
}

type overlayJSON struct {
	W   int    `json:"w"`
	H   int    `json:"h"`
	RLE string `json:"rle"`
}

func (o Overlay) MarshalJSON() ([]byte, error) {
	return json.Marshal(overlayJSON{W: o.Width, H: o.Height, RLE: encoding.EncodeRLE(o.Cells)})
}

func (o *Overlay) UnmarshalJSON(b []byte) error {
	var raw overlayJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	cells, err := encoding.DecodeRLEMax(raw.RLE, raw.W*raw.H)
	if err != nil {
		return fmt.Errorf("noise overlay: %w", err)
	}
	if len(cells) != raw.W*raw.H {
		return fmt.Errorf("noise overlay: %d cells for %dx%d", len(cells), raw.W, raw.H)
	}
	*o = Overlay{Width: raw.W, Height: raw.H, Cells: cells}
	return nil
}
