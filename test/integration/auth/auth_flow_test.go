// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

//go:build integration

package auth_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/observability"
	"github.com/authcore/authcore/internal/token"
)

var _ = Describe("Auth flows", func() {
	var (
		ctx     context.Context
		clk     *clock
		svc     *auth.Service
		metrics *observability.Metrics
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncate(ctx)
		clk = &clock{now: time.Now().UTC().Truncate(time.Second)}
		svc, metrics = newService(clk)
	})

	Describe("Register", func() {
		It("stores a normalized email and a bcrypt hash", func() {
			user, err := svc.Register(ctx, "  Alice@Example.COM ", "correct horse")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).To(BeNumerically(">", 0))

			got, err := env.Users.GetByEmail(ctx, "alice@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(user.ID))
			Expect(got.PasswordHash).To(HavePrefix("$2"))
			Expect(got.PasswordHash).NotTo(ContainSubstring("correct horse"))
		})

		It("rejects a second account for the same email", func() {
			_, err := svc.Register(ctx, "bob@example.com", "pw-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Register(ctx, "BOB@example.com", "pw-2")
			Expect(err).To(MatchError(auth.ErrEmailTaken))
			Expect(testutil.ToFloat64(metrics.Registrations.WithLabelValues(observability.ResultConflict))).To(Equal(1.0))
		})

		It("creates exactly one user under concurrent registration", func() {
			const workers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				conflicts int
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.Register(ctx, "race@example.com", "pw")
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						successes++
					} else if auth.KindOf(err) == auth.KindConflict {
						conflicts++
					}
				}()
			}
			wg.Wait()

			Expect(successes).To(Equal(1))
			Expect(conflicts).To(Equal(workers - 1))
		})
	})

	Describe("Login", func() {
		var userID int64

		BeforeEach(func() {
			user, err := svc.Register(ctx, "carol@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
			userID = user.ID
		})

		It("issues tokens that verify", func() {
			res, err := svc.Login(ctx, "carol@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.UserID).To(Equal(userID))

			id, err := svc.VerifyAccess(ctx, res.AccessToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(userID))
			Expect(svc.VerifyRefresh(ctx, res.RefreshToken)).To(BeTrue())
		})

		It("does not store the raw refresh token", func() {
			res, err := svc.Login(ctx, "carol@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())

			var stored string
			err = env.pool.QueryRow(ctx, "SELECT refresh_token_hash FROM sessions WHERE user_id = $1", userID).Scan(&stored)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(Equal(res.RefreshToken))
			Expect(stored).To(Equal(auth.HashRefreshToken(res.RefreshToken)))
		})

		It("rotates the refresh token on every login", func() {
			first, err := svc.Login(ctx, "carol@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())
			second, err := svc.Login(ctx, "carol@example.com", "s3cret")
			Expect(err).NotTo(HaveOccurred())

			Expect(second.RefreshToken).NotTo(Equal(first.RefreshToken))
			Expect(svc.VerifyRefresh(ctx, first.RefreshToken)).To(BeFalse())
			Expect(svc.VerifyRefresh(ctx, second.RefreshToken)).To(BeTrue())
			Expect(countSessions(ctx, userID)).To(Equal(1))
		})

		It("keeps one session under concurrent logins", func() {
			const workers = 6
			tokens := make([]string, workers)
			var wg sync.WaitGroup
			for i := range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					res, err := svc.Login(ctx, "carol@example.com", "s3cret")
					Expect(err).NotTo(HaveOccurred())
					tokens[i] = res.RefreshToken
				}()
			}
			wg.Wait()

			Expect(countSessions(ctx, userID)).To(Equal(1))
			live := 0
			for _, tok := range tokens {
				if svc.VerifyRefresh(ctx, tok) {
					live++
				}
			}
			Expect(live).To(Equal(1))
		})

		It("returns the same error for an unknown email and a wrong password", func() {
			_, wrongPassword := svc.Login(ctx, "carol@example.com", "nope")
			_, unknownEmail := svc.Login(ctx, "nobody@example.com", "s3cret")

			Expect(wrongPassword).To(MatchError(auth.ErrInvalidCredentials))
			Expect(unknownEmail).To(MatchError(auth.ErrInvalidCredentials))
			Expect(wrongPassword.Error()).To(Equal(unknownEmail.Error()))
			Expect(countSessions(ctx, userID)).To(Equal(0))
		})
	})

	Describe("Token lifetimes", func() {
		var res *auth.LoginResult

		BeforeEach(func() {
			_, err := svc.Register(ctx, "dave@example.com", "pw")
			Expect(err).NotTo(HaveOccurred())
			res, err = svc.Login(ctx, "dave@example.com", "pw")
			Expect(err).NotTo(HaveOccurred())
		})

		It("expires access tokens after fifteen minutes", func() {
			clk.Advance(token.AccessTTL - time.Minute)
			_, err := svc.VerifyAccess(ctx, res.AccessToken)
			Expect(err).NotTo(HaveOccurred())

			clk.Advance(2 * time.Minute)
			_, err = svc.VerifyAccess(ctx, res.AccessToken)
			Expect(err).To(MatchError(auth.ErrTokenInvalid))
		})

		It("expires refresh tokens after fifteen days", func() {
			clk.Advance(token.RefreshTTL - time.Hour)
			Expect(svc.VerifyRefresh(ctx, res.RefreshToken)).To(BeTrue())

			clk.Advance(2 * time.Hour)
			Expect(svc.VerifyRefresh(ctx, res.RefreshToken)).To(BeFalse())
			_, err := svc.Refresh(ctx, res.RefreshToken)
			Expect(err).To(MatchError(auth.ErrTokenInvalid))
		})

		It("refreshes without rotating the refresh token", func() {
			clk.Advance(time.Hour)
			access, err := svc.Refresh(ctx, res.RefreshToken)
			Expect(err).NotTo(HaveOccurred())

			id, err := svc.VerifyAccess(ctx, access)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(res.UserID))
			Expect(svc.VerifyRefresh(ctx, res.RefreshToken)).To(BeTrue())
		})

		It("revokes the refresh token on logout", func() {
			Expect(svc.Logout(ctx, res.UserID)).To(Succeed())
			Expect(svc.VerifyRefresh(ctx, res.RefreshToken)).To(BeFalse())
			Expect(countSessions(ctx, res.UserID)).To(Equal(0))

			Expect(svc.Logout(ctx, res.UserID)).To(Succeed(), "logout is idempotent")
		})
	})
})
