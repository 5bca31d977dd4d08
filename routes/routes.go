package routes

import (
	"devicepool/app"
	"devicepool/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	loanCtl := controllers.NewLoanController(s)
	waitCtl := controllers.NewWaitlistController(s)

	authMW := app.AuthRequired(a.Verifier)

	// ------------------------------
	// 借用生命周期
	// ------------------------------
	loans := r.Group("/api/loans")
	{
		// 审批/归还路径沿用柜台扫码流程，不带用户凭证
		loans.POST("/:id/approve", loanCtl.Approve)
		loans.POST("/:id/return", loanCtl.Return)

		loans.GET("", loanCtl.List) // ?deviceId=&userId=&status=
		loans.GET("/:id", loanCtl.Get)
	}

	loansAuth := r.Group("/api/loans", authMW)
	{
		loansAuth.POST("", loanCtl.Create)
		loansAuth.POST("/:id/reject", loanCtl.Reject)
		loansAuth.POST("/:id/cancel", loanCtl.Cancel)
		loansAuth.POST("/:id/collect", loanCtl.Collect)
		loansAuth.POST("/:id/revert-collection", loanCtl.RevertCollection)
		loansAuth.GET("/:id/history", loanCtl.History)
	}

	// ------------------------------
	// 等候名单
	// ------------------------------
	r.POST("/api/loans/:id/waitlist", waitCtl.JoinByLoan)
	r.GET("/api/devices/:deviceId/waitlist", waitCtl.ListForDevice)

	waitAuth := r.Group("", authMW)
	{
		waitAuth.POST("/api/devices/:deviceId/waitlist", waitCtl.JoinByDevice)
		waitAuth.DELETE("/api/loans/:id/waitlist/:userId", waitCtl.Leave)
		waitAuth.GET("/api/users/:userId/waitlist", waitCtl.Positions)
	}
}
