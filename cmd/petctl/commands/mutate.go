package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"petsoft/internal/domain/pets"
	"petsoft/internal/petstate"
)

// runMutation siembra un contenedor con el snapshot del servidor, dispara la
// mutación, muestra la vista optimista y espera la respuesta del gateway.
func runMutation(cmd *cobra.Command, opts *globalOptions, mutate func(c *petstate.Container) <-chan error) error {
	gw, err := opts.gateway()
	if err != nil {
		return err
	}
	snapshot, err := gw.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("load pets: %w", err)
	}

	stderr := cmd.ErrOrStderr()
	c := petstate.New(snapshot, gw, petstate.Options{
		Notifier: petstate.NotifierFunc(func(message string) {
			yellow.Fprintf(stderr, "warning: %s\n", message)
		}),
	})
	defer c.Close()

	done := mutate(c)
	printView(cmd.OutOrStdout(), c.View())

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-cmd.Context().Done():
		return cmd.Context().Err()
	}

	fmt.Fprintln(cmd.OutOrStdout(), "done")
	return nil
}

type petFlags struct {
	name, owner, image, notes string
	age                       int
}

func (f *petFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Pet name")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Owner name")
	cmd.Flags().StringVar(&f.image, "image", "", "Image URL (empty = placeholder)")
	cmd.Flags().IntVar(&f.age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Notes")
}

// patch toma solo los flags que el usuario pasó.
func (f *petFlags) patch(cmd *cobra.Command) pets.Patch {
	var p pets.Patch
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = &f.name
	}
	if flags.Changed("owner") {
		p.OwnerName = &f.owner
	}
	if flags.Changed("image") {
		p.ImageURL = &f.image
	}
	if flags.Changed("age") {
		p.Age = &f.age
	}
	if flags.Changed("notes") {
		p.Notes = &f.notes
	}
	return p
}

func newAddCmd(opts *globalOptions) *cobra.Command {
	f := &petFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Check in a new pet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := pets.Essentials{
				Name:      f.name,
				OwnerName: f.owner,
				ImageURL:  f.image,
				Age:       f.age,
				Notes:     f.notes,
			}
			return runMutation(cmd, opts, func(c *petstate.Container) <-chan error {
				return c.AddPet(in)
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newEditCmd(opts *globalOptions) *cobra.Command {
	f := &petFlags{}
	cmd := &cobra.Command{
		Use:   "edit <pet-id>",
		Short: "Edit the given fields of a pet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := f.patch(cmd)
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to edit: pass at least one of --name, --owner, --image, --age, --notes")
			}
			return runMutation(cmd, opts, func(c *petstate.Container) <-chan error {
				return c.EditPet(args[0], patch)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newCheckoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "checkout <pet-id>",
		Aliases: []string{"delete"},
		Short:   "Check out a pet (removes it)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, opts, func(c *petstate.Container) <-chan error {
				return c.DeletePet(args[0])
			})
		},
	}
}
