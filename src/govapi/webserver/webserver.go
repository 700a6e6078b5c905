package webserver

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ncatdao/govapi/src/govapi/chain"
	"github.com/ncatdao/govapi/src/govapi/service"
)

func New(svc *service.Service, price *chain.PriceTracker) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery(), cors.Default())

	g.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	p := NewProposals(svc)
	v1 := g.Group("/v1")
	{
		v1.GET("/proposals", p.List)
		v1.POST("/proposals", p.Create)
		v1.POST("/proposals/:id/vote", p.Vote)
		v1.POST("/proposals/:id/fund", p.Fund)
		v1.POST("/proposals/:id/decide", p.Decide)
		v1.GET("/market", Market(price))
	}
	return g
}

// Market reports the last observed token price.
func Market(price *chain.PriceTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if price == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"err": "price tracking disabled"})
			return
		}
		cur, asOf := price.Current()
		if cur == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"err": "no price observed yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"busd": cur.String(), "as_of": asOf.Unix()})
	}
}
