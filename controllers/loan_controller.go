package controllers

import (
	"net/http"
	"time"

	"devicepool/models"

	"github.com/gin-gonic/gin"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

// 创建借用申请
func (lc *LoanController) Create(c *gin.Context) {
	var in struct {
		ID       string    `json:"id"`
		DeviceID string    `json:"deviceId" binding:"required"`
		UserID   string    `json:"userId" binding:"required"`
		From     time.Time `json:"from"`
		Till     time.Time `json:"till"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if subject(c) != in.UserID {
		fail(c, http.StatusForbidden, "FORBIDDEN", "loans can only be requested for yourself")
		return
	}

	l := &models.Loan{
		ID:       in.ID,
		DeviceID: in.DeviceID,
		UserID:   in.UserID,
		From:     in.From,
		Till:     in.Till,
	}
	if err := lc.Store.CreateLoan(c.Request.Context(), l); err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusCreated, l)
}

func (lc *LoanController) Get(c *gin.Context) {
	l, err := lc.Store.GetLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, l)
}

// 借还记录，?deviceId=&userId=&status=
func (lc *LoanController) List(c *gin.Context) {
	ls, err := lc.Store.ListLoans(c.Request.Context(),
		c.Query("deviceId"), c.Query("userId"), c.Query("status"))
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"loans": ls, "count": len(ls)})
}

func (lc *LoanController) History(c *gin.Context) {
	logs, err := lc.Store.LoanHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"history": logs})
}

func (lc *LoanController) Approve(c *gin.Context) {
	l, err := lc.Store.ApproveLoan(c.Request.Context(), c.Param("id"), subject(c))
	if err != nil {
		failErr(c, err)
		return
	}
	lc.emit(c, l)
	respond(c, http.StatusOK, l)
}

func (lc *LoanController) Reject(c *gin.Context) {
	var in struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&in)

	l, err := lc.Store.RejectLoan(c.Request.Context(), c.Param("id"), subject(c), in.Reason)
	if err != nil {
		failErr(c, err)
		return
	}
	lc.emit(c, l)
	respond(c, http.StatusOK, l)
}

func (lc *LoanController) Cancel(c *gin.Context) {
	l, err := lc.Store.CancelLoan(c.Request.Context(), c.Param("id"), subject(c))
	if err != nil {
		failErr(c, err)
		return
	}
	lc.emit(c, l)
	respond(c, http.StatusOK, l)
}

func (lc *LoanController) Collect(c *gin.Context) {
	l, err := lc.Store.CollectLoan(c.Request.Context(), c.Param("id"), subject(c))
	if err != nil {
		failErr(c, err)
		return
	}
	lc.emit(c, l)
	respond(c, http.StatusOK, l)
}

func (lc *LoanController) Return(c *gin.Context) {
	l, err := lc.Store.ReturnLoan(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	lc.emit(c, l)
	respond(c, http.StatusOK, l)
}

// 管理操作：撤销错误的领取确认
func (lc *LoanController) RevertCollection(c *gin.Context) {
	l, err := lc.Store.RevertCollection(c.Request.Context(), c.Param("id"), subject(c))
	if err != nil {
		failErr(c, err)
		return
	}
	lc.emit(c, l)
	respond(c, http.StatusOK, l)
}
