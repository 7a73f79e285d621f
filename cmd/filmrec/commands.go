package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rushteam/filmrec/dataset"
	"github.com/rushteam/filmrec/hybrid"
	"github.com/rushteam/filmrec/recall"
)

func newRecommendCmd(a *app) *cobra.Command {
	var (
		req         hybrid.Request
		ratings     []string
		alpha, beta float64
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Hybrid recommendations for a user",
		Long: `Blend UBCF, IBCF and content signals for a user.

Examples:
  filmrec recommend --user 42
  filmrec recommend --user 42 --favorite "Ant-Man" --alpha 0.5
  filmrec recommend --rating "Thor=4" --rating "Up=5" --top-n 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.Ratings, err = parseRatings(ratings); err != nil {
				return err
			}
			if cmd.Flags().Changed("alpha") {
				req.Alpha = &alpha
			}
			if cmd.Flags().Changed("beta") {
				req.Beta = &beta
			}
			resp, err := a.engine.Recommend(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&req.UserID, "user", "u", "", "user id")
	f.StringArrayVarP(&ratings, "rating", "r", nil, "explicit rating TITLE=VALUE (repeatable)")
	f.StringArrayVarP(&req.Favorites, "favorite", "f", nil, "favorite title (repeatable)")
	f.IntVarP(&req.TopN, "top-n", "n", 0, "number of results (0 = configured, <0 = all)")
	f.IntVarP(&req.Neighbors, "neighbors", "k", 0, "neighbor count (0 = configured, <0 = all)")
	f.Float64Var(&alpha, "alpha", 0, "content weight in [0,1]")
	f.Float64Var(&beta, "beta", 0, "UBCF weight within the collaborative blend in [0,1]")
	return cmd
}

func newUserBasedCmd(a *app) *cobra.Command {
	var (
		userID  string
		k, topN int
	)
	cmd := &cobra.Command{
		Use:   "ubcf",
		Short: "User-based collaborative filtering predictions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), a.engine.UserBased(cmd.Context(), userID, k, topN))
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	cmd.Flags().IntVarP(&k, "neighbors", "k", 0, "neighbor count")
	cmd.Flags().IntVarP(&topN, "top-n", "n", 0, "number of results")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newItemBasedCmd(a *app) *cobra.Command {
	var (
		ratings []string
		k, topN int
	)
	cmd := &cobra.Command{
		Use:   "ibcf",
		Short: "Item-based collaborative filtering predictions from explicit ratings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := parseRatings(ratings)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"recommendations": a.engine.ItemBased(cmd.Context(), rs, k, topN),
			})
		},
	}
	cmd.Flags().StringArrayVarP(&ratings, "rating", "r", nil, "rating TITLE=VALUE (repeatable)")
	cmd.Flags().IntVarP(&k, "neighbors", "k", 0, "neighbor count")
	cmd.Flags().IntVarP(&topN, "top-n", "n", 0, "number of results")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func newContentCmd(a *app) *cobra.Command {
	var (
		q           recall.ContentQuery
		aggregation string
		idsOnly     bool
	)
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Content-based recommendations from favorite titles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Aggregation = recall.Aggregation(aggregation)
			cands, err := a.engine.Content(cmd.Context(), q)
			if err != nil {
				return err
			}
			if !idsOnly {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"recommendations": cands})
			}
			ids := make([]string, len(cands))
			for i, c := range cands {
				ids[i] = c.ItemID
				if ids[i] == "" {
					ids[i] = c.Title
				}
			}
			return writeJSON(cmd.OutOrStdout(), ids)
		},
	}
	f := cmd.Flags()
	f.StringArrayVarP(&q.Favorites, "favorite", "f", nil, "favorite title (repeatable)")
	f.StringArrayVarP(&q.Exclude, "exclude", "x", nil, "title to exclude (repeatable)")
	f.StringArrayVar(&q.ExcludeIDs, "exclude-id", nil, "catalog id to exclude (repeatable)")
	f.IntVarP(&q.TopN, "top-n", "n", 0, "number of results")
	f.IntVar(&q.PerFavoriteCap, "cap", 0, "candidates per favorite")
	f.StringVar(&aggregation, "aggregation", "", "sum or max")
	f.BoolVar(&idsOnly, "ids", false, "print item ids only")
	_ = cmd.MarkFlagRequired("favorite")
	return cmd
}

// newImportCmd 把 CSV 数据集写入 Redis，供 dataset.source=redis 使用。
func newImportCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a CSV dataset into the configured Redis store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.store == nil {
				return fmt.Errorf("import requires dataset.source=redis")
			}
			snap, err := (&dataset.CSVLoader{Path: path, Logger: a.logger}).Load(cmd.Context())
			if err != nil {
				return err
			}
			loader := &dataset.StoreLoader{
				Store:      a.store,
				RatingsKey: a.cfg.Dataset.RatingsKey,
				CatalogKey: a.cfg.Dataset.CatalogKey,
				Logger:     a.logger,
			}
			if err := loader.Save(cmd.Context(), snap); err != nil {
				return err
			}
			a.logger.Info().Int("ratings", len(snap.Ratings())).Int("catalog", len(snap.Catalog())).Msg("dataset imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "csv", "", "CSV dataset to import")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}
