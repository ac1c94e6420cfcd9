package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"auto_story_script_generator/agents"
	"auto_story_script_generator/chat"
	"auto_story_script_generator/config"
	"auto_story_script_generator/outline"
	"auto_story_script_generator/storage"
	"auto_story_script_generator/story"
)

// 默认创作前提：安防摄像头视角的系列小剧本。
const defaultPremise = `根据时间(When)、地点(Where)、人物(Who)、事件(What)等因素组合，写出一个系列的、符合现实的、安防摄像头视角的故事，适合作为一个个小剧本快速拍成视频。

参考时间：黄昏、凌晨。
参考地点：室内封闭区域、院子、室外重点开放区域、公共区域、厨房、客厅、卧室。
可能出现的人物：穿着各式制服或便装的快递员、身份未知的人、戴口罩的人、穿连帽衫的人、用手遮住面部的人。
可参考的事件：发生肢体冲突、劫持或拖拽某人、倒地不起、搬走割草机、拿走笔记本电脑。

叙事风格：叙述者是一个安防摄像头，目睹事件发生。视角客观，专注于事件细节与技术性观察，不做情感判断。
描述动作时直接而技术化，特别关注时间的推进。没有人物对话，只有旁白叙述。每个故事相互独立，绝不重复。`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var (
		configPath string
		numStories int
		useMock    bool
		verbose    bool
	)

	root := &cobra.Command{
		Use:           "auto_story_script_generator",
		Short:         "生成安防摄像头视角的系列故事剧本",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "运行大纲规划与逐篇生成流水线",
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env 里的凭据先于配置加载。
			_ = godotenv.Load()

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if numStories > 0 {
				cfg.Generation.NumStories = numStories
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, useMock, verbose)
		},
	}
	generate.Flags().StringVar(&configPath, "config", "config/config.yaml", "path to config.yaml")
	generate.Flags().IntVar(&numStories, "stories", 0, "override the number of stories")
	generate.Flags().BoolVar(&useMock, "mock", false, "use the scripted mock model instead of a real endpoint")
	generate.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the extracted outline")
	root.AddCommand(generate)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, useMock, verbose bool) error {
	logger := log.Default()

	llm, err := buildLLM(cfg, useMock)
	if err != nil {
		return err
	}
	if cfg.LLM.CacheReply {
		llm = chat.NewCachedLLM(llm)
	}

	premise := cfg.Generation.Premise
	if premise == "" {
		premise = defaultPremise
	}
	n := cfg.Generation.NumStories

	// 第一阶段：大纲。
	planRoles := agents.Build(agents.BuildParams{Premise: premise, NumStories: n})
	outlineGen, err := outline.NewGenerator(llm, planRoles, cfg.Generation.OutlineRounds, logger)
	if err != nil {
		return err
	}
	specs, err := outlineGen.Generate(ctx, premise, n)
	if err != nil {
		return err
	}
	if err := outline.WriteSidecar(cfg.Generation.OutputDir, specs); err != nil {
		return err
	}
	if verbose {
		for _, s := range specs {
			fmt.Printf("\nStory %d: %s\n%s\n", s.Number, s.Title, s.Requirements())
		}
	}

	// 第二阶段：逐篇生成。角色带着大纲上下文重新构建一次。
	storyRoles := agents.Build(agents.BuildParams{
		Premise:        premise,
		NumStories:     n,
		OutlineContext: outline.FormatContext(specs),
	})
	artifacts, err := storage.New(cfg.Generation.OutputDir)
	if err != nil {
		return err
	}
	storyGen, err := story.NewGenerator(llm, storyRoles, artifacts, specs, cfg.Generation, logger)
	if err != nil {
		return err
	}
	return storyGen.Run(ctx)
}

func buildLLM(cfg config.Config, useMock bool) (chat.LLMClient, error) {
	if useMock {
		return &chat.ScriptedLLM{}, nil
	}
	settings := &chat.Settings{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		TimeoutSec:  cfg.LLM.TimeoutSec,
		Seed:        cfg.LLM.Seed,
	}
	switch cfg.LLM.Provider {
	case "openai":
		return chat.NewOpenAILLMFromConfig(settings)
	case "deepseek", "azure":
		// OpenAI 兼容接口，需要填写 base_url。
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider %s requires base_url (OpenAI-compatible endpoint)", cfg.LLM.Provider)
		}
		return chat.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}
