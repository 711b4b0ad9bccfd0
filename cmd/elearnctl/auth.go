package main

import (
	"fmt"

	"github.com/jrsteele09/elearn-web/authapi"
	"github.com/jrsteele09/elearn-web/session"
	"github.com/jrsteele09/elearn-web/users"
	"github.com/spf13/cobra"
)

func loginCmd() *cobra.Command {
	var (
		email    string
		password string
		admin    bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session tokens",
		Long: `Log in with email and password.

With --admin the account must hold the administrator role; any other
account is logged out again straight away.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				p, err := prompt("Password")
				if err != nil {
					return err
				}
				password = p
			}

			c := newClient()
			defer c.store.Teardown()

			creds := authapi.Credentials{Email: email, Password: password}
			var (
				user *users.User
				err  error
			)
			if admin {
				user, err = session.AdminLogin(cmd.Context(), c.store, creds)
			} else {
				user, err = c.store.Login(cmd.Context(), creds)
			}
			if err != nil {
				return friendly(err)
			}
			success("Logged in as %s (%s)", user.Email, user.Role)
			info("Tokens stored in %s", c.storage.Path())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when empty)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Require the administrator role")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func registerCmd() *cobra.Command {
	var reg authapi.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is sent by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Password == "" {
				p, err := prompt("Password")
				if err != nil {
					return err
				}
				reg.Password = p
			}
			c := newClient()
			defer c.store.Teardown()
			if err := c.store.Register(cmd.Context(), reg); err != nil {
				return friendly(err)
			}
			success("Account created for %s", reg.Email)
			info("Confirm it with: elearnctl verify-otp --email %s --code <code>", reg.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reg.Name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&reg.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&reg.Password, "password", "p", "", "Account password (prompted when empty)")
	cmd.Flags().StringVar(&reg.ReferralCode, "referral", "", "Referral code from an existing member")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func verifyOTPCmd() *cobra.Command {
	var v authapi.OTPVerification
	cmd := &cobra.Command{
		Use:   "verify-otp",
		Short: "Confirm a registration with the emailed code and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			defer c.store.Teardown()
			user, err := c.store.VerifyOTP(cmd.Context(), v)
			if err != nil {
				return friendly(err)
			}
			success("Verified and logged in as %s", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&v.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&v.OTP, "code", "c", "", "Verification code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func resendOTPCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resend-otp",
		Short: "Send a new verification code",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			defer c.store.Teardown()
			if err := c.store.ResendOTP(cmd.Context(), email); err != nil {
				return friendly(err)
			}
			success("If %s is awaiting verification a new code is on its way", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and delete the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient()
			defer c.store.Teardown()
			c.store.Logout(cmd.Context())
			success("Logged out")
			return nil
		},
	}
}

func printUser(u *users.User) {
	fmt.Printf("  id:    %s\n  name:  %s\n  email: %s\n  role:  %s\n", u.ID, u.Name, u.Email, u.Role)
}
