package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigmarp/medical-api/internal/config"
	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/pkg/auth"
)

// tokenCmd mints a bearer token signed with the configured secret, for local
// testing and for the game-side bridge that calls the API.
func tokenCmd(configPath *string) *cobra.Command {
	var actor model.Actor
	var role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			actor.Role = model.Role(role)
			switch actor.Role {
			case model.RoleDoctor, model.RolePolice, model.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			if actor.DNI == "" {
				return fmt.Errorf("--dni is required")
			}

			token, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL).Issue(actor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor.DNI, "dni", "", "caller DNI")
	cmd.Flags().StringVar(&actor.Name, "name", "", "caller display name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleDoctor), "doctor, police or admin")
	cmd.Flags().StringSliceVar(&actor.Roles, "grant", nil, "additional roles, e.g. recruiter")
	return cmd
}
