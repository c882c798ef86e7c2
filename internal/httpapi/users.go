package httpapi

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"faceattend/internal/facedetect"
	"faceattend/internal/model"
	"faceattend/internal/sqlstore"
)

type registerUserForm struct {
	Name         string `form:"name" binding:"required"`
	RollNumber   string `form:"roll_number" binding:"required"`
	DepartmentID int64  `form:"department_id" binding:"required"`
	Branch       string `form:"branch" binding:"required"`
}

// RegisterUser enrolls an attendee. Expects a multipart form with name,
// roll_number, department_id, branch and a photo file that shows a face.
func (h *Handler) RegisterUser(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxImageBytes+64<<10)

	var form registerUserForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file is required"})
		return
	}
	if fh.Size > h.cfg.MaxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errTooLarge.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read photo"})
		return
	}
	photo, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read photo"})
		return
	}

	img, err := facedetect.Decode(photo, facedetect.DefaultMaxDimension)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data: " + err.Error()})
		return
	}
	n, err := h.faces.CountFaces(c.Request.Context(), img)
	if err != nil {
		log.Printf("enrollment face detection failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Face detection failed: " + err.Error()})
		return
	}
	if n == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No face detected in the uploaded image. Please try again."})
		return
	}

	u := &model.User{
		Name:         strings.TrimSpace(form.Name),
		RollNumber:   strings.TrimSpace(form.RollNumber),
		DepartmentID: form.DepartmentID,
		Branch:       strings.TrimSpace(form.Branch),
		Photo:        photo,
	}
	if err := h.store.RegisterUser(c.Request.Context(), u); err != nil {
		switch {
		case errors.Is(err, sqlstore.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "Roll number already exists!"})
		case errors.Is(err, sqlstore.ErrUnknownDepartment):
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown department " + strconv.FormatInt(form.DepartmentID, 10)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, u)
}

// ListUsers serves the admin user table.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// TodayAttendance serves today's records.
func (h *Handler) TodayAttendance(c *gin.Context) {
	date := h.today()
	recs, err := h.store.AttendanceOn(c.Request.Context(), date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "attendance": recs})
}

// DeleteAttendance removes today's record for one roll number.
func (h *Handler) DeleteAttendance(c *gin.Context) {
	roll := c.Param("roll_number")
	err := h.store.DeleteAttendance(c.Request.Context(), roll, h.today())
	switch {
	case errors.Is(err, sqlstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "No attendance record for " + roll + " today"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Attendance record deleted successfully"})
	}
}

// DeleteAllAttendance clears today's records.
func (h *Handler) DeleteAllAttendance(c *gin.Context) {
	n, err := h.store.DeleteAllAttendance(c.Request.Context(), h.today())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "All attendance records deleted successfully", "deleted": n})
}
