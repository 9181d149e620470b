/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	liberr "github.com/nabbar/omnibridge/errors"
	"github.com/nabbar/omnibridge/registry"
	"github.com/nabbar/omnibridge/session"
)

// Router builds the gin.Engine exposing spec.md §6's Admin HTTP API.
func (s *Service) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	grp := r.Group("/sessions")
	grp.GET("", s.listSessions)
	grp.GET("/stats", s.stats)
	grp.GET("/connected", s.filtered(func(d registry.Descriptor) bool {
		return d.State != session.Disconnected && d.State != session.Stopped
	}))
	grp.GET("/logged-on", s.filtered(func(d registry.Descriptor) bool {
		return d.State == session.LoggedOn
	}))
	grp.GET("/protocol/:type", s.byProtocol)
	grp.GET("/:id", s.getSession)
	grp.POST("/enable-all", s.enableAll(true))
	grp.POST("/disable-all", s.enableAll(false))
	grp.POST("/:id/enable", s.setEnabled(true))
	grp.POST("/:id/disable", s.setEnabled(false))
	grp.PUT("/:id/sequence", s.setSequence)

	return r
}

func descriptorToPayload(d registry.Descriptor) map[string]any {
	return map[string]any{
		"sessionId":    d.ID,
		"sessionName":  d.ID,
		"protocolType": d.Protocol.String(),
		"state":        d.State.String(),
		"connected":    d.State != session.Disconnected && d.State != session.Stopped,
		"loggedOn":     d.State == session.LoggedOn,
		"enabled":      d.Enabled,
	}
}

func detailedPayload(d registry.Descriptor) map[string]any {
	p := descriptorToPayload(d)
	p["incomingSeqNum"] = d.IncomingSeqNum
	p["outgoingSeqNum"] = d.OutgoingSeqNum
	p["role"] = d.Role.String()
	return p
}

func adminError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func (s *Service) listSessions(c *gin.Context) {
	list := s.reg.List()
	out := make([]map[string]any, 0, len(list))
	for _, d := range list {
		out = append(out, descriptorToPayload(d))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Service) stats(c *gin.Context) {
	if v, _, ok := s.statsCache.Load("stats"); ok {
		c.JSON(http.StatusOK, v)
		return
	}

	list := s.reg.List()
	byProtocol := map[string]int{}
	connected, loggedOn := 0, 0
	for _, d := range list {
		byProtocol[d.Protocol.String()]++
		if d.State != session.Disconnected && d.State != session.Stopped {
			connected++
		}
		if d.State == session.LoggedOn {
			loggedOn++
		}
	}
	body := gin.H{
		"total":      len(list),
		"connected":  connected,
		"loggedOn":   loggedOn,
		"byProtocol": byProtocol,
	}
	s.statsCache.Store("stats", body)
	c.JSON(http.StatusOK, body)
}

func (s *Service) getSession(c *gin.Context) {
	d, ok := s.reg.Get(c.Param("id"))
	if !ok {
		adminError(c, http.StatusNotFound, liberr.AdminError.Error(nil).Error())
		return
	}
	c.JSON(http.StatusOK, detailedPayload(d))
}

func (s *Service) filtered(pred func(registry.Descriptor) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := s.reg.List()
		out := make([]map[string]any, 0)
		for _, d := range list {
			if pred(d) {
				out = append(out, descriptorToPayload(d))
			}
		}
		c.JSON(http.StatusOK, out)
	}
}

func (s *Service) byProtocol(c *gin.Context) {
	want := strings.ToUpper(c.Param("type"))
	s.filtered(func(d registry.Descriptor) bool {
		return strings.ToUpper(d.Protocol.String()) == want
	})(c)
}

func (s *Service) setEnabled(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := s.reg.Get(id); !ok {
			adminError(c, http.StatusNotFound, liberr.AdminError.Error(nil).Error())
			return
		}
		if err := s.ctrl.Enable(id, enabled); err != nil {
			adminError(c, http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"ack": true})
	}
}

func (s *Service) enableAll(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		count := 0
		for _, d := range s.reg.List() {
			if err := s.ctrl.Enable(d.ID, enabled); err == nil {
				count++
			}
		}
		c.JSON(http.StatusOK, gin.H{"ack": true, "count": count})
	}
}

type sequenceRequest struct {
	IncomingSeqNum *int64 `json:"incomingSeqNum"`
	OutgoingSeqNum *int64 `json:"outgoingSeqNum"`
}

func (s *Service) setSequence(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.reg.Get(id); !ok {
		adminError(c, http.StatusNotFound, liberr.AdminError.Error(nil).Error())
		return
	}
	var req sequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		adminError(c, http.StatusBadRequest, liberr.AdminError.Error(nil).Error())
		return
	}
	if err := s.ctrl.SetSequence(id, req.IncomingSeqNum, req.OutgoingSeqNum); err != nil {
		adminError(c, http.StatusMethodNotAllowed, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"ack": true})
}
