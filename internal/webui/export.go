// ABOUTME: Transcript export handlers: plain text and PDF downloads
// ABOUTME: Lines use the "[timestamp] You/TutorMate: content" layout

package webui

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/tutormate/tutormate/internal/store"
)

// exportLine formats one transcript row for export files.
func exportLine(m *store.Message) string {
	speaker := "TutorMate"
	if m.Role == store.RoleUser {
		speaker = "You"
	}
	return fmt.Sprintf("[%s] %s: %s", m.CreatedAt.Format("2006-01-02 15:04:05"), speaker, m.Content)
}

// handleExportTXT streams the transcript as a plain text download
func (h *Handler) handleExportTXT(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	messages, err := h.chat.History(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("failed to load history for export", "error", err)
		http.Error(w, "failed to export history", http.StatusInternalServerError)
		return
	}

	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, exportLine(m))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", user.Username+"_history.txt"))
	_, _ = w.Write([]byte(strings.Join(lines, "\n")))
}

// handleExportPDF streams the transcript as a PDF download
func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	messages, err := h.chat.History(r.Context(), user.Username)
	if err != nil {
		h.logger.Error("failed to load history for export", "error", err)
		http.Error(w, "failed to export history", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(true, 60)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 20, fmt.Sprintf("AI TutorMate - %s's History", user.Username))
	pdf.Ln(30)

	pdf.SetFont("Helvetica", "", 10)
	for _, m := range messages {
		for _, sub := range strings.Split(exportLine(m), "\n") {
			pdf.MultiCell(0, 12, sub, "", "L", false)
		}
		pdf.Ln(6)
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", user.Username+"_history.pdf"))
	if err := pdf.Output(w); err != nil {
		h.logger.Error("failed to write PDF", "error", err)
	}
}
