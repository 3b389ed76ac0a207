package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/picker"
	"github.com/mattsblocklist/countrypicker/internal/server"
)

// listFlags are the list-shaping flags shared by list, search, letters and
// export. Unset flags keep the configured defaults.
type listFlags struct {
	variant     string
	translation string
	region      string
	subregion   string
	include     []string
	exclude     []string
	preferred   []string
	alpha       bool
	asJSON      bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.variant, "variant", "", "Flag variant: glyph or image")
	flags.StringVarP(&f.translation, "translation", "t", "", "Name translation, e.g. fra or deu")
	flags.StringVarP(&f.region, "region", "r", "", "Only countries of this region")
	flags.StringVar(&f.subregion, "subregion", "", "Only countries of this subregion")
	flags.StringSliceVar(&f.include, "include", nil, "Only these countries (codes or names)")
	flags.StringSliceVar(&f.exclude, "exclude", nil, "Leave out these countries (codes or names)")
	flags.StringSliceVar(&f.preferred, "preferred", nil, "List these countries first (codes or names)")
	flags.BoolVar(&f.alpha, "alpha", false, "Always sort by name, ignoring --preferred")
	flags.BoolVar(&f.asJSON, "json", false, "Output JSON")
}

func (f *listFlags) options(ctx context.Context, cmd *cobra.Command, a *app) (picker.Options, error) {
	opts := a.cfg.Options()
	flags := cmd.Flags()

	if flags.Changed("variant") {
		variant, err := countries.ParseFlagVariant(f.variant)
		if err != nil {
			return opts, err
		}
		opts.FlagVariant = variant
	}
	if flags.Changed("translation") {
		opts.Translation = countries.ParseTranslation(f.translation)
	}
	if flags.Changed("region") {
		region, err := countries.ParseRegion(f.region)
		if err != nil {
			return opts, err
		}
		opts.Region = region
	}
	if flags.Changed("subregion") {
		opts.Subregion = f.subregion
	}
	if flags.Changed("alpha") {
		opts.AlphaFilter = f.alpha
	}

	if !flags.Changed("include") && !flags.Changed("exclude") && !flags.Changed("preferred") {
		return opts, nil
	}
	n, err := a.normalizer(ctx, opts.FlagVariant)
	if err != nil {
		return opts, err
	}
	if flags.Changed("include") {
		opts.IncludeCodes = n.ResolveCodes(f.include)
	}
	if flags.Changed("exclude") {
		opts.ExcludeCodes = n.ResolveCodes(f.exclude)
	}
	if flags.Changed("preferred") {
		opts.PreferredCodes = n.ResolveCodes(f.preferred)
	}
	return opts, nil
}

func (a *app) normalizer(ctx context.Context, variant countries.FlagVariant) (*countries.Normalizer, error) {
	cat, err := a.cache.Load(ctx, variant)
	if err != nil {
		return nil, err
	}
	return countries.NewNormalizer(cat), nil
}

func newListCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List countries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, a, &f, "")
		},
	}
	f.register(cmd)
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search countries by name, code, calling code or currency",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, a, &f, strings.Join(args, " "))
		},
	}
	f.register(cmd)
	return cmd
}

func runList(cmd *cobra.Command, a *app, f *listFlags, query string) error {
	ctx := cmd.Context()
	opts, err := f.options(ctx, cmd, a)
	if err != nil {
		return err
	}
	opts.Query = query

	state, err := a.engine.Apply(ctx, opts)
	if err != nil {
		return err
	}
	if f.asJSON {
		return writeJSON(cmd.OutOrStdout(), state)
	}
	writeCountries(cmd.OutOrStdout(), state.VisibleList)
	return nil
}

func newLettersCmd(a *app) *cobra.Command {
	var (
		f    listFlags
		jump string
	)
	cmd := &cobra.Command{
		Use:   "letters",
		Short: "Show the jump-to-letter index of a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := f.options(ctx, cmd, a)
			if err != nil {
				return err
			}

			state, err := a.engine.Apply(ctx, opts)
			if err != nil {
				return err
			}

			if jump != "" {
				index, err := a.engine.ScrollTo(state.Generation, jump)
				if err != nil {
					return err
				}
				if f.asJSON {
					return writeJSON(cmd.OutOrStdout(), server.ScrollResponse{
						Fingerprint: state.Fingerprint,
						Letter:      jump,
						Index:       index,
					})
				}
				c := state.VisibleList[index]
				fmt.Fprintf(cmd.OutOrStdout(), "%s: row %d (%s %s)\n", strings.ToUpper(jump), index, c.Code, c.Name.Common())
				return nil
			}

			if f.asJSON {
				return writeJSON(cmd.OutOrStdout(), server.LettersResponse{
					Fingerprint: state.Fingerprint,
					Letters:     state.AvailableLetters,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(state.AvailableLetters, " "))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&jump, "jump", "", "Print the first row starting with this letter")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	var (
		variant     string
		translation string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "info CODE|NAME",
		Short: "Show the details of one country",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts := a.cfg.Options()
			if cmd.Flags().Changed("variant") {
				v, err := countries.ParseFlagVariant(variant)
				if err != nil {
					return err
				}
				opts.FlagVariant = v
			}
			if cmd.Flags().Changed("translation") {
				opts.Translation = countries.ParseTranslation(translation)
			}

			n, err := a.normalizer(ctx, opts.FlagVariant)
			if err != nil {
				return err
			}
			input := strings.Join(args, " ")
			code, ok := n.Normalize(input)
			if !ok {
				code = countries.NormalizeCode(input)
			}

			info, err := a.cache.InfoOf(ctx, opts.FlagVariant, code, opts.Translation)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}

			name := info.CountryName
			if info.Fallback {
				name += " (untranslated)"
			}
			table := newTable(cmd.OutOrStdout(), "FIELD", "VALUE")
			table.AppendBulk([][]string{
				{"code", info.Code},
				{"name", name},
				{"calling code", info.CallingCode},
				{"currency", info.Currency},
				{"flag", fmt.Sprintf("%s:%s", info.Flag.Variant, info.Flag.Value)},
			})
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&variant, "variant", "", "Flag variant: glyph or image")
	cmd.Flags().StringVarP(&translation, "translation", "t", "", "Name translation, e.g. fra or deu")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newRegionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List regions, subregions and translations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.cache.Load(cmd.Context(), a.cfg.Options().FlagVariant)
			if err != nil {
				return err
			}

			var data [][]string
			for _, region := range countries.Regions {
				data = append(data, []string{string(region), strings.Join(cat.Subregions(region), ", ")})
			}
			table := newTable(cmd.OutOrStdout(), "REGION", "SUBREGIONS")
			table.AppendBulk(data)
			table.Render()

			translations := make([]string, 0)
			for _, t := range countries.Translations() {
				translations = append(translations, string(t))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nTranslations: %s\n", strings.Join(translations, ", "))
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the picker over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.Server.Addr
			}

			if err := a.cache.Preload(ctx, workers); err != nil {
				a.logger.Warn("some catalogs failed to preload", "error", err)
			}

			h := server.NewHandler(a.newEngine, a.cache, a.cfg.Options(), a.logger.With("component", "http"))
			srv := server.New(addr, a.cfg.Server.ReadHeaderTimeout, h, a.registry, a.logger)
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 2, "Concurrent catalog loads at startup")
	return cmd
}
