package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/store"
	"docrag/internal/adapter/vectorindex"
)

var (
	infoStore string
	infoJSON  bool
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the build contract and size of an index",
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVarP(&infoStore, "store", "s", "", "store directory (required)")
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
	_ = infoCmd.MarkFlagRequired("store")
}

type storeInfo struct {
	Dir       string         `json:"dir"`
	BasePath  string         `json:"base_path"`
	Contract  store.Contract `json:"contract"`
	Records   int            `json:"records"`
	Vectors   int            `json:"vectors"`
	Aligned   bool           `json:"aligned"`
	MaxID     int            `json:"max_id"`
	Manifest  int            `json:"manifest_files"`
	FileCount int            `json:"files"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	if !store.Exists(infoStore) {
		return fmt.Errorf("no index found at %s. Run 'docrag build' first", infoStore)
	}

	lock, err := lockStore(infoStore, false)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	st, err := store.Open(infoStore, vectorindex.Options{})
	if err != nil {
		return err
	}
	info := describeStore(st)

	if infoJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	c := info.Contract
	fmt.Printf("Store:      %s\n", info.Dir)
	fmt.Printf("Base path:  %s\n", info.BasePath)
	fmt.Printf("Model:      %s (dim %d)\n", c.ModelName, c.Dim)
	fmt.Printf("Index:      %s\n", c.IndexType)
	fmt.Printf("Chunking:   size %d, overlap %d, min %d\n", c.ChunkSize, c.Overlap, c.MinChunkLen)
	fmt.Printf("Created:    %s\n", time.Unix(int64(c.CreatedAt), 0).Format(time.RFC3339))
	fmt.Printf("Records:    %d (max id %d)\n", info.Records, info.MaxID)
	fmt.Printf("Vectors:    %d\n", info.Vectors)
	fmt.Printf("Files:      %d\n", info.FileCount)
	fmt.Printf("Manifest:   %d entries\n", info.Manifest)
	if !info.Aligned {
		fmt.Println("WARNING: record and vector counts differ")
	}
	return nil
}

func describeStore(st *store.Store) storeInfo {
	files := make(map[string]struct{})
	for _, r := range st.Records() {
		files[r.AbsPath] = struct{}{}
	}
	return storeInfo{
		Dir:       st.Dir(),
		BasePath:  st.BasePath(),
		Contract:  st.Contract(),
		Records:   st.Len(),
		Vectors:   st.Index().Len(),
		Aligned:   st.Len() == st.Index().Len(),
		MaxID:     st.MaxID(),
		Manifest:  store.LoadManifest(st.Dir()).Len(),
		FileCount: len(files),
	}
}
