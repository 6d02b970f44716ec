package service

import (
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"rostersync/internal/roster/models"
)

// Fingerprint hashes the resolved content of a roster week. Shift order does
// not matter; ids and confidences are excluded so re-ingesting the same
// roster yields the same value.
func Fingerprint(key models.WeekKey, shifts []models.ResolvedShift) string {
	lines := make([]string, 0, len(shifts))
	for _, s := range shifts {
		identity := "-"
		if s.IdentityID != nil {
			identity = s.IdentityID.String()
		}
		lines = append(lines, strings.Join([]string{
			identity,
			s.OriginalName,
			s.Date.String(),
			s.StartTime.String(),
			s.EndTime.String(),
			strconv.Itoa(s.BreakMinutes),
			s.Role,
			s.Notes,
		}, "\x1f"))
	}
	slices.Sort(lines)

	h, _ := blake2b.New256(nil)
	h.Write([]byte(key.VenueID.String()))
	h.Write([]byte{0})
	h.Write([]byte(key.WeekStart.String()))
	for _, line := range lines {
		h.Write([]byte{0})
		h.Write([]byte(line))
	}
	return hex.EncodeToString(h.Sum(nil))
}
