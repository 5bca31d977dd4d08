package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type WaitlistController struct{ *Srv }

func NewWaitlistController(s *Srv) *WaitlistController { return &WaitlistController{Srv: s} }

// 按设备排队：重复加入直接成功，不报错
func (wc *WaitlistController) JoinByDevice(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if deviceID == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "missing device id")
		return
	}
	userID := subject(c)

	l, err := wc.Store.JoinDeviceWaitlist(c.Request.Context(), deviceID, userID)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, l)
}

// 按记录排队：重复加入返回 409
func (wc *WaitlistController) JoinByLoan(c *gin.Context) {
	var in struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	l, err := wc.Store.JoinLoanWaitlist(c.Request.Context(), c.Param("id"), in.UserID)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"loan":     l,
		"position": l.QueuePosition(in.UserID),
	})
}

func (wc *WaitlistController) Leave(c *gin.Context) {
	userID := c.Param("userId")
	if subject(c) != userID {
		fail(c, http.StatusForbidden, "FORBIDDEN", "you can only remove yourself from a waitlist")
		return
	}

	_, err := wc.Store.LeaveWaitlist(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"left": true})
}

// 跨设备查询：该用户所有排队位置
func (wc *WaitlistController) Positions(c *gin.Context) {
	userID := c.Param("userId")
	if subject(c) != userID {
		fail(c, http.StatusForbidden, "FORBIDDEN", "you can only view your own waitlist positions")
		return
	}

	positions, err := wc.Store.WaitlistPositions(c.Request.Context(), userID)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"positions": positions})
}

func (wc *WaitlistController) ListForDevice(c *gin.Context) {
	deviceID := c.Param("deviceId")
	if deviceID == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "missing device id")
		return
	}

	l, err := wc.Store.WaitlistFor(c.Request.Context(), deviceID)
	if err != nil {
		failErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"loanId":   l.ID,
		"deviceId": l.DeviceID,
		"waitlist": l.Waitlist,
		"length":   len(l.Waitlist),
	})
}
