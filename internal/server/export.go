package server

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleExportCSV streams the filtered submission table as a CSV download.
func (s *Server) handleExportCSV(c *gin.Context) {
	data, err := s.store.ExportRows(c.Request.Context(), citizenFilter(c))
	if err != nil {
		log.Printf("server: export csv: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not export"})
		return
	}

	filename := fmt.Sprintf("town-hall-responses-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	w := csv.NewWriter(c.Writer)
	if err := w.Write(data.Columns); err != nil {
		log.Printf("server: export csv write: %v", err)
		return
	}
	for _, row := range data.Rows {
		if err := w.Write(row); err != nil {
			log.Printf("server: export csv write: %v", err)
			return
		}
	}
	w.Flush()
}

// handleExportJSON returns the same flattened table as JSON.
func (s *Server) handleExportJSON(c *gin.Context) {
	data, err := s.store.ExportRows(c.Request.Context(), citizenFilter(c))
	if err != nil {
		log.Printf("server: export json: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not export"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": data.Columns, "rows": data.Rows})
}
