// Package export renders analysis results as the flat CSV artifacts the
// research report is assembled from.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ldevries/kamervote/internal/analysis"
	"github.com/ldevries/kamervote/internal/types"
)

// WriteEdgeList writes a period network as an edge-list table. Normalized
// networks get an extra raw_weight column so the agreement counts stay
// visible next to the z-scores.
func WriteEdgeList(w io.Writer, network *analysis.Network) error {
	writer := csv.NewWriter(w)

	header := []string{"party_a", "party_b", "weight", "agreement_rate", "shared_votes"}
	if network.Normalized {
		header = append(header, "raw_weight")
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write edge list header: %w", err)
	}

	for _, edge := range network.Edges {
		row := []string{
			edge.PartyA,
			edge.PartyB,
			formatFloat(edge.Weight),
			formatFloat(edge.AgreementRate),
			strconv.Itoa(edge.SharedVotes),
		}
		if network.Normalized {
			row = append(row, formatFloat(edge.RawWeight))
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write edge row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteNodeList writes node attributes for a period network
func WriteNodeList(w io.Writer, network *analysis.Network) error {
	writer := csv.NewWriter(w)

	header := []string{"party", "ideology", "degree", "strength", "betweenness"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write node list header: %w", err)
	}

	for _, id := range network.NodeIDs() {
		node := network.Nodes[id]
		row := []string{
			node.ID,
			string(node.Ideology),
			strconv.Itoa(node.Degree),
			formatFloat(node.Strength),
			formatFloat(node.Betweenness),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write node row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSignatureList writes the co-signer relationships of a period,
// one row per signer per motion document
func WriteSignatureList(w io.Writer, records []types.SignatureRecord) error {
	writer := csv.NewWriter(w)

	header := []string{"party", "actor", "motion_id", "title", "role", "signed_at"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write signature header: %w", err)
	}

	for _, record := range records {
		signedAt := ""
		if !record.SignedAt.IsZero() {
			signedAt = record.SignedAt.UTC().Format("2006-01-02")
		}

		row := []string{
			record.PartyID,
			record.Actor,
			record.MotionID,
			record.Title,
			string(record.Role),
			signedAt,
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write signature row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteComparison writes the cross-period statistics table. Undefined
// values and undefined percent changes are left as empty cells.
func WriteComparison(w io.Writer, comparison analysis.Comparison) error {
	writer := csv.NewWriter(w)

	header := []string{"metric"}
	header = append(header, comparison.Labels...)
	for i := 1; i < len(comparison.Labels); i++ {
		transition := fmt.Sprintf("%s_to_%s", comparison.Labels[i-1], comparison.Labels[i])
		header = append(header, "abs_change_"+transition, "pct_change_"+transition)
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write comparison header: %w", err)
	}

	for _, row := range comparison.Rows {
		record := []string{row.Metric}
		for _, value := range row.Values {
			record = append(record, formatNullable(value))
		}
		for i := range row.AbsChanges {
			record = append(record, formatNullable(row.AbsChanges[i]), formatNullable(row.PctChanges[i]))
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write comparison row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNullable(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
